package gig

import (
	"fmt"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/pcm"
)

// Streamable is a sample that can be read frame by frame.
type Streamable interface {
	Read(dst []byte, frames int, decompBuf *pcm.Buffer) (int, error)
	SetPos(frames int64, whence chunk.Whence) int64
	Pos() int64
	FrameSize() int
	TotalFrames() int64
}

// ChunkBacked is an entity decoded from a chunk of the container.
type ChunkBacked interface {
	Offset() int64
	ChunkID() chunk.ID
}

var (
	_ Streamable      = (*Sample)(nil)
	_ ChunkBacked     = (*Sample)(nil)
	_ pcm.FrameReader = (*Sample)(nil)
)

// LoopType is the playback direction of a sample loop.
type LoopType uint32

const (
	LoopNormal        LoopType = 0
	LoopBidirectional LoopType = 1
	LoopBackward      LoopType = 2
)

// Sample is one wave of the wave pool.
type Sample struct {
	list *chunk.List
	data *chunk.Chunk

	Index      int
	Name       string
	FormatTag  uint16
	Channels   int
	SampleRate int
	BlockAlign int
	BitDepth   int

	// from the smpl chunk
	Manufacturer  uint32
	Product       uint32
	SamplePeriod  uint32
	UnityNote     uint32
	FineTune      uint32
	Loops         int
	LoopType      LoopType
	LoopStart     uint32
	LoopEnd       uint32
	LoopFraction  uint32
	LoopPlayCount uint32

	GroupIndex    int
	Compressed    bool
	Dithered      bool
	TruncatedBits int

	// PoolOffset locates the wave list relative to the start of the
	// wave pool; the pool table refers to samples by it.
	PoolOffset int64

	frameSize   int
	totalFrames int64
	pos         int64
	raw         *pcm.ChunkReader

	frameTable         []int64
	samplesPerFrame    int
	samplesInLastFrame int
	worstCaseFrameSize int
	frameOffset        int
	decompression      pcm.Buffer

	cache pcm.Buffer
}

// waveFormat is the fixed part of a wave format chunk.
type waveFormat struct {
	FormatTag      uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitDepth       uint16
}

func newSample(lst *chunk.List, index int, poolOffset int64) (*Sample, error) {
	s := &Sample{list: lst, Index: index, PoolOffset: poolOffset}

	fmtCk := lst.Subchunk(chunk.IDFmt)
	if fmtCk == nil {
		return nil, errNoFmtChunk
	}

	var format waveFormat
	if err := fmtCk.Riff().ReadLE(&format); err != nil {
		return nil, fmt.Errorf("fmt chunk: %w", err)
	}

	s.FormatTag = format.FormatTag
	s.Channels = int(format.Channels)
	s.SampleRate = int(format.SampleRate)
	s.BlockAlign = int(format.BlockAlign)
	s.BitDepth = int(format.BitDepth)

	s.frameSize = pcm.FrameSize(s.BitDepth, s.Channels)
	if s.frameSize <= 0 {
		return nil, fmt.Errorf("unsupported format: %d channels, %d bits", s.Channels, s.BitDepth)
	}

	s.data = lst.Subchunk(chunk.IDData)
	if s.data == nil {
		return nil, errNoDataChunk
	}

	s.Name = chunk.ReadInfoName(lst)

	if ck := lst.Subchunk(ckSmpl); ck != nil {
		s.readSmpl(ck)
	}

	if ck := lst.Subchunk(ck3gix); ck != nil {
		if v, err := ck.Uint16(); err == nil {
			s.GroupIndex = int(v)
		}
	}

	if ck := lst.Subchunk(ckEwav); ck != nil {
		s.Compressed = true

		r := ck.Fields()

		version := r.Uint32()
		if version > 2 && s.BitDepth == 24 {
			s.Dithered = r.Uint32() != 0

			if s.Channels == 2 {
				r.Seek(84)
			} else {
				r.Seek(64)
			}

			s.TruncatedBits = int(r.Uint32())
		}

		if r.Err() != nil {
			return nil, fmt.Errorf("ewav chunk: %w", r.Err())
		}

		if err := s.scanCompressed(); err != nil {
			return nil, fmt.Errorf("scan compressed sample: %w", err)
		}
	} else {
		s.raw = &pcm.ChunkReader{Chunk: s.data, BitDepth: s.BitDepth, Channels: s.Channels}
		s.totalFrames = int64(s.data.Size) / int64(s.frameSize)
	}

	return s, nil
}

func (s *Sample) readSmpl(ck *chunk.Chunk) {
	r := ck.Fields()
	s.Manufacturer = r.Uint32()
	s.Product = r.Uint32()
	s.SamplePeriod = r.Uint32()
	s.UnityNote = r.Uint32()
	s.FineTune = r.Uint32()
	_ = r.Uint32() // SMPTE format
	_ = r.Uint32() // SMPTE offset
	s.Loops = int(r.Uint32())
	_ = r.Uint32() // sampler data

	if s.Loops > 0 {
		_ = r.Uint32() // cue point id
		s.LoopType = LoopType(r.Uint32())
		s.LoopStart = r.Uint32()
		s.LoopEnd = r.Uint32()
		s.LoopFraction = r.Uint32()
		s.LoopPlayCount = r.Uint32()
	}

	if r.Err() != nil {
		s.Loops = 0
	}
}

// Offset returns the file offset of the sample's wave list.
func (s *Sample) Offset() int64 {
	return s.list.FileOffset()
}

// ChunkID returns the list type of the sample's chunk.
func (s *Sample) ChunkID() chunk.ID {
	return s.list.Type
}

// FrameSize returns the size of one decoded frame in bytes.
func (s *Sample) FrameSize() int {
	return s.frameSize
}

// TotalFrames returns the number of sample points.
func (s *Sample) TotalFrames() int64 {
	return s.totalFrames
}

// Format describes the decoded PCM.
func (s *Sample) Format() pcm.Format {
	return pcm.Format{
		Channels:   s.Channels,
		BitDepth:   s.BitDepth,
		SampleRate: s.SampleRate,
		Unsigned8:  true,
	}
}

// DataSize returns the raw size of the data chunk.
func (s *Sample) DataSize() int64 {
	return int64(s.data.Size)
}

// Pos returns the current position in sample points.
func (s *Sample) Pos() int64 {
	if s.Compressed {
		return s.pos
	}

	return s.raw.Pos()
}

// SetPos moves the read position and returns the new position in sample
// points. Compressed samples jump through the frame table.
func (s *Sample) SetPos(frames int64, whence chunk.Whence) int64 {
	if !s.Compressed {
		var pos int64

		switch whence {
		case chunk.Current:
			pos = s.raw.Pos() + frames
		case chunk.End:
			pos = s.totalFrames - 1 - frames
		case chunk.Backward:
			pos = s.raw.Pos() - frames
		default:
			pos = frames
		}

		pos = max(pos, 0)
		p, _ := s.raw.SeekFrame(pos)

		return p
	}

	switch whence {
	case chunk.Current:
		s.pos += frames
	case chunk.End:
		s.pos = s.totalFrames - 1 - frames
	case chunk.Backward:
		s.pos -= frames
	default:
		s.pos = frames
	}

	s.pos = min(max(s.pos, 0), s.totalFrames)

	frame := int(s.pos / tableFrames)
	s.frameOffset = int(s.pos % tableFrames)

	if frame >= len(s.frameTable) {
		frame = len(s.frameTable) - 1
		s.frameOffset = int(s.pos - int64(frame)*tableFrames)
	}

	s.data.SetPos(s.frameTable[frame], chunk.Start)

	return s.pos
}

// Read decodes up to frames sample points into dst and returns the number
// decoded. Compressed samples use decompBuf as scratch space, or an
// internal buffer when it is nil. A decompression buffer must not be shared
// by readers running concurrently.
func (s *Sample) Read(dst []byte, frames int, decompBuf *pcm.Buffer) (int, error) {
	if frames <= 0 {
		return 0, nil
	}

	if s.Compressed {
		return s.readCompressed(dst, frames, decompBuf)
	}

	n, err := s.raw.ReadFrames(dst, frames)
	if n == 0 {
		return 0, nil
	}

	return n, err
}

// ReadFrames implements pcm.FrameReader using the internal buffer.
func (s *Sample) ReadFrames(dst []byte, frames int) (int, error) {
	return s.Read(dst, frames, nil)
}

// SeekFrame implements pcm.FrameReader.
func (s *Sample) SeekFrame(frame int64) (int64, error) {
	return s.SetPos(frame, chunk.Start), nil
}

// LoadSampleData caches the whole sample in RAM.
func (s *Sample) LoadSampleData() (*pcm.Buffer, error) {
	return s.LoadSampleDataWithNullSamplesExtension(int(s.totalFrames), 0)
}

// LoadSampleDataWithNullSamplesExtension caches count sample points
// followed by nullCount silent ones. count is clamped to the sample length.
func (s *Sample) LoadSampleDataWithNullSamplesExtension(count, nullCount int) (*pcm.Buffer, error) {
	buf, err := pcm.LoadWithNullExtension(s, int(s.totalFrames), count, nullCount, s.frameSize)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", s.Index, err)
	}

	s.cache = *buf

	return &s.cache, nil
}

// ReleaseSampleData drops the RAM cache.
func (s *Sample) ReleaseSampleData() {
	s.cache.Release()
}

// Cache returns the RAM cache; Size is zero when nothing is cached.
func (s *Sample) Cache() *pcm.Buffer {
	return &s.cache
}
