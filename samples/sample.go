package samples

import (
	"sync/atomic"

	"github.com/go-audio/audio"
)

// LoopMode is the playback mode of a sample loop.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopForward
	LoopBidirectional
	LoopBackward
)

// Sample is one decoded sample. It is immutable after the manager
// publishes it; only the holder count changes.
type Sample struct {
	ID      SampleID
	Address Address

	Channels   int
	SampleRate int
	BitDepth   int
	Frames     int

	LoopMode      LoopMode
	LoopStart     int
	LoopEnd       int
	LoopFraction  uint32
	LoopPlayCount int
	RootKey       int

	// Data holds interleaved samples normalized to [-1, 1].
	Data *audio.Float32Buffer

	missing bool
	holders atomic.Int32
}

// Missing reports whether the sample stands in for a file that could not
// be found. It has no data.
func (s *Sample) Missing() bool {
	return s.missing
}

// Holders returns the number of zones attached to the sample.
func (s *Sample) Holders() int {
	return int(s.holders.Load())
}

// Bytes returns the size of the decoded data.
func (s *Sample) Bytes() int {
	if s.Data == nil {
		return 0
	}

	return len(s.Data.Data) * 4
}

func newPlaceholder(id SampleID, addr Address) *Sample {
	return &Sample{ID: id, Address: addr, missing: true, RootKey: 60}
}

func newSample(addr Address, buf *audio.Float32Buffer, bitDepth int) *Sample {
	s := &Sample{Address: addr, Data: buf, BitDepth: bitDepth, RootKey: 60}

	if buf != nil && buf.Format != nil {
		s.Channels = buf.Format.NumChannels
		s.SampleRate = buf.Format.SampleRate

		if s.Channels > 0 {
			s.Frames = len(buf.Data) / s.Channels
		}
	}

	return s
}
