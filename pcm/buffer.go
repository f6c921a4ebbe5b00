// Package pcm holds the frame level plumbing shared by every sample reader:
// RAM cache buffers with a silent tail, streaming read loops and conversion
// of little endian PCM to go-audio buffers.
package pcm

import (
	"errors"
	"fmt"
	"io"
)

var (
	errBadFrameSize = errors.New("frame size must be positive")
	errNilReader    = errors.New("nil frame reader")
)

// Buffer is a decoded sample cache. Data holds Size bytes of audio followed
// by NullExtensionSize bytes of silence, so interpolating readers may look a
// few frames past the end.
type Buffer struct {
	Data              []byte
	Size              int
	NullExtensionSize int
}

// Frames returns the number of real frames cached.
func (b *Buffer) Frames(frameSize int) int {
	if b == nil || frameSize <= 0 {
		return 0
	}

	return b.Size / frameSize
}

// Release drops the cached data.
func (b *Buffer) Release() {
	if b == nil {
		return
	}

	b.Data = nil
	b.Size = 0
	b.NullExtensionSize = 0
}

// FrameSize returns the byte size of one frame (one sample point over all
// channels).
func FrameSize(bitDepth, channels int) int {
	return bitDepth / 8 * channels
}

// FrameReader is a seekable stream of interleaved little endian frames.
type FrameReader interface {
	// ReadFrames reads up to frames frames into dst and returns the number
	// read. It returns 0 at the end of the stream.
	ReadFrames(dst []byte, frames int) (int, error)
	// SeekFrame moves to an absolute frame position.
	SeekFrame(frame int64) (int64, error)
}

// ReadFull calls ReadFrames until frames frames are read or a read returns
// zero frames.
func ReadFull(r FrameReader, dst []byte, frames, frameSize int) (int, error) {
	if r == nil {
		return 0, errNilReader
	}

	if frameSize <= 0 {
		return 0, errBadFrameSize
	}

	total := 0
	for total < frames {
		n, err := r.ReadFrames(dst[total*frameSize:], frames-total)
		total += n

		if err != nil && !errors.Is(err, io.EOF) {
			return total, err
		}

		if n == 0 {
			break
		}
	}

	return total, nil
}

// LoadWithNullExtension decodes count frames from the start of r into a new
// buffer followed by nullCount frames of silence. count is clamped to total,
// the number of frames the source holds.
func LoadWithNullExtension(r FrameReader, total, count, nullCount, frameSize int) (*Buffer, error) {
	if frameSize <= 0 {
		return nil, errBadFrameSize
	}

	if count > total || count < 0 {
		count = total
	}

	if nullCount < 0 {
		nullCount = 0
	}

	alloc := (count + nullCount) * frameSize
	buf := &Buffer{Data: make([]byte, alloc)}

	if _, err := r.SeekFrame(0); err != nil {
		return nil, fmt.Errorf("failed to rewind sample: %w", err)
	}

	n, err := ReadFull(r, buf.Data, count, frameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample data: %w", err)
	}

	buf.Size = n * frameSize
	buf.NullExtensionSize = alloc - buf.Size

	// silence everything after the decoded frames
	clear(buf.Data[buf.Size:])

	return buf, nil
}

// SwapFrames reverses the order of the frames in buf.
func SwapFrames(buf []byte, frameSize int) {
	if frameSize <= 0 {
		return
	}

	n := len(buf) / frameSize
	tmp := make([]byte, frameSize)

	for lo, hi := 0, n-1; lo < hi; lo, hi = lo+1, hi-1 {
		a := buf[lo*frameSize : (lo+1)*frameSize]
		b := buf[hi*frameSize : (hi+1)*frameSize]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
