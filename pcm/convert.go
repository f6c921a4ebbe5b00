package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

const (
	scalePCMInt8  = 128.0
	scalePCMInt16 = 32768.0
	scalePCMInt24 = 8388608.0
	scalePCMInt32 = 2147483648.0
	maxPCMInt8    = 127
	maxPCMInt16   = 32767
	maxPCMInt24   = 8388607
	maxPCMInt32   = 2147483647
)

var errUnhandledBitDepth = errors.New("unhandled bit depth")

// Format describes interleaved little endian PCM.
type Format struct {
	Channels   int
	BitDepth   int
	SampleRate int
	// Unsigned8 marks 8-bit data stored as offset binary (WAV, DLS).
	Unsigned8 bool
}

// FrameSize returns the byte size of one frame.
func (f Format) FrameSize() int {
	return FrameSize(f.BitDepth, f.Channels)
}

// AudioFormat returns the go-audio format descriptor.
func (f Format) AudioFormat() *audio.Format {
	return &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate}
}

func (f Format) decodeFunc() (func([]byte) int, error) {
	switch f.BitDepth {
	case 8:
		if f.Unsigned8 {
			return func(b []byte) int { return int(b[0]) - 128 }, nil
		}

		return func(b []byte) int { return int(int8(b[0])) }, nil
	case 16:
		return func(b []byte) int { return int(int16(binary.LittleEndian.Uint16(b))) }, nil
	case 24:
		return func(b []byte) int { return int(audio.Int24LETo32(b)) }, nil
	case 32:
		return func(b []byte) int { return int(int32(binary.LittleEndian.Uint32(b))) }, nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnhandledBitDepth, f.BitDepth)
	}
}

// ToIntBuffer converts raw frames to an integer buffer. 8-bit data is
// recentred to signed values.
func ToIntBuffer(data []byte, f Format) (*audio.IntBuffer, error) {
	decode, err := f.decodeFunc()
	if err != nil {
		return nil, err
	}

	bps := f.BitDepth / 8
	n := len(data) / bps
	out := make([]int, n)

	for i := range n {
		out[i] = decode(data[i*bps : (i+1)*bps])
	}

	return &audio.IntBuffer{Format: f.AudioFormat(), Data: out, SourceBitDepth: f.BitDepth}, nil
}

// ToFloat32Buffer converts raw frames to a normalized float buffer.
func ToFloat32Buffer(data []byte, f Format) (*audio.Float32Buffer, error) {
	decode, err := f.decodeFunc()
	if err != nil {
		return nil, err
	}

	bps := f.BitDepth / 8
	n := len(data) / bps
	out := make([]float32, n)

	for i := range n {
		out[i] = NormalizeInt(decode(data[i*bps:(i+1)*bps]), f.BitDepth)
	}

	return &audio.Float32Buffer{Format: f.AudioFormat(), Data: out, SourceBitDepth: f.BitDepth}, nil
}

// NormalizeInt scales a signed sample of the given depth to [-1, 1).
func NormalizeInt(sample int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(float64(sample) / scalePCMInt8)
	case 16:
		return float32(float64(sample) / scalePCMInt16)
	case 24:
		return float32(float64(sample) / scalePCMInt24)
	case 32:
		return float32(float64(sample) / scalePCMInt32)
	default:
		return 0
	}
}

// FloatToInt converts a normalized sample back to a signed integer of the
// given depth, clamping out of range values.
func FloatToInt(value float32, bitDepth int) int {
	value = clampFloat32(value, -1, 1)

	var scale float64

	var hi int64

	switch bitDepth {
	case 8:
		scale, hi = scalePCMInt8, maxPCMInt8
	case 16:
		scale, hi = scalePCMInt16, maxPCMInt16
	case 24:
		scale, hi = scalePCMInt24, maxPCMInt24
	case 32:
		scale, hi = scalePCMInt32, maxPCMInt32
	default:
		return 0
	}

	sample := min(int64(math.Round(float64(value)*scale)), hi)
	if sample < int64(-scale) {
		sample = int64(-scale)
	}

	return int(sample)
}

// FloatToIntBuffer converts a float buffer to integers of the given depth.
func FloatToIntBuffer(buf *audio.Float32Buffer, bitDepth int) *audio.IntBuffer {
	if buf == nil {
		return nil
	}

	out := make([]int, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = FloatToInt(v, bitDepth)
	}

	return &audio.IntBuffer{Format: buf.Format, Data: out, SourceBitDepth: bitDepth}
}

func clampFloat32(value, min, max float32) float32 {
	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}
