package pcm

import (
	"github.com/cwbudde/samplelib/chunk"
)

// ChunkReader streams uncompressed PCM straight from a data chunk. Samples
// of big endian files are swapped to little endian.
type ChunkReader struct {
	Chunk    *chunk.Chunk
	BitDepth int
	Channels int
	// Base is the payload offset of frame zero.
	Base int64
}

func (r *ChunkReader) bytesPerSample() int {
	return (r.BitDepth-1)/8 + 1
}

// TotalFrames returns the number of whole frames after Base.
func (r *ChunkReader) TotalFrames() int64 {
	fs := int64(r.bytesPerSample() * r.Channels)
	if fs <= 0 || r.Chunk == nil {
		return 0
	}

	return (int64(r.Chunk.Size) - r.Base) / fs
}

// ReadFrames implements FrameReader.
func (r *ChunkReader) ReadFrames(dst []byte, frames int) (int, error) {
	if r.Channels <= 0 {
		return 0, errBadFrameSize
	}

	n, err := r.Chunk.Read(dst, frames*r.Channels, r.bytesPerSample())

	return n / r.Channels, err
}

// SeekFrame implements FrameReader.
func (r *ChunkReader) SeekFrame(frame int64) (int64, error) {
	fs := int64(r.bytesPerSample() * r.Channels)
	if fs <= 0 {
		return 0, errBadFrameSize
	}

	pos := r.Chunk.SetPos(r.Base+frame*fs, chunk.Start)

	return (pos - r.Base) / fs, nil
}

// Pos returns the current frame position.
func (r *ChunkReader) Pos() int64 {
	fs := int64(r.bytesPerSample() * r.Channels)
	if fs <= 0 {
		return 0
	}

	return (r.Chunk.Pos() - r.Base) / fs
}
