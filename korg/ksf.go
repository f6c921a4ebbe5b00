// Package korg reads Korg KSF sample files and KMP multisample files.
package korg

import (
	"encoding/binary"
	"fmt"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/pcm"
	"github.com/sirupsen/logrus"
)

var (
	ckSMP1 = chunk.MakeID("SMP1")
	ckSMD1 = chunk.MakeID("SMD1")
	ckNAME = chunk.MakeID("NAME")
	ckMSP1 = chunk.MakeID("MSP1")
	ckRLP1 = chunk.MakeID("RLP1")
)

const (
	smp1MinSize    = 32
	smd1HeaderSize = 12
	name16Size     = 16
	name24Size     = 24
)

// KSFSample is a single Korg sample file.
type KSFSample struct {
	cf  *chunk.File
	smd *chunk.Chunk
	raw *pcm.ChunkReader

	Name         string
	DefaultBank  uint8
	Start        uint32
	Start2       uint32
	LoopStart    uint32
	LoopEnd      uint32
	SampleRate   uint32
	Attributes   uint8
	LoopTune     int8
	Channels     uint8
	BitDepth     uint8
	SamplePoints uint32

	cache pcm.Buffer
}

var _ pcm.FrameReader = (*KSFSample)(nil)

// OpenKSF opens and parses the KSF file at path.
func OpenKSF(path string) (*KSFSample, error) {
	cf, err := chunk.Open(path, chunk.Options{
		ByteOrder: binary.BigEndian,
		Layout:    chunk.LayoutFlat,
		FormType:  ckSMP1,
	})
	if err != nil {
		return nil, err
	}

	s, err := newKSF(cf)
	if err != nil {
		cf.Close()
		return nil, err
	}

	logrus.Debugf("korg: %s: sample %q, %d points", path, s.Name, s.SamplePoints)

	return s, nil
}

func newKSF(cf *chunk.File) (*KSFSample, error) {
	root := cf.Root()
	s := &KSFSample{cf: cf}

	smp := root.Subchunk(ckSMP1)
	if smp == nil {
		return nil, formatError(cf.Path(), "not a Korg sample file, SMP1", chunk.ErrChunkNotFound)
	}

	if smp.Size < smp1MinSize {
		return nil, formatError(cf.Path(), fmt.Sprintf("SMP1 chunk of %d bytes", smp.Size), errShortChunk)
	}

	r := smp.Fields()
	s.Name = r.String(name16Size)
	s.DefaultBank = r.Uint8()
	s.Start = uint32(r.Uint8())<<16 | uint32(r.Uint16())
	s.Start2 = r.Uint32()
	s.LoopStart = r.Uint32()
	s.LoopEnd = r.Uint32()

	if r.Err() != nil {
		return nil, formatError(cf.Path(), "SMP1 chunk", r.Err())
	}

	s.smd = root.Subchunk(ckSMD1)
	if s.smd == nil {
		return nil, formatError(cf.Path(), "not a Korg sample file, SMD1", chunk.ErrChunkNotFound)
	}

	if s.smd.Size < smd1HeaderSize {
		return nil, formatError(cf.Path(), fmt.Sprintf("SMD1 chunk of %d bytes", s.smd.Size), errShortChunk)
	}

	r = s.smd.Fields()
	s.SampleRate = r.Uint32()
	s.Attributes = r.Uint8()
	s.LoopTune = r.Int8()
	s.Channels = r.Uint8()
	s.BitDepth = r.Uint8()
	s.SamplePoints = r.Uint32()

	if r.Err() != nil {
		return nil, formatError(cf.Path(), "SMD1 chunk", r.Err())
	}

	if s.FrameSize() <= 0 {
		return nil, formatError(cf.Path(), fmt.Sprintf("%d channels of %d bits", s.Channels, s.BitDepth), errBadFormat)
	}

	if ck := root.Subchunk(ckNAME); ck != nil {
		if name, err := ck.ReadString(name24Size); err == nil {
			s.Name = name
		}
	}

	s.raw = &pcm.ChunkReader{Chunk: s.smd, BitDepth: int(s.BitDepth), Channels: int(s.Channels), Base: smd1HeaderSize}

	if avail := s.raw.TotalFrames(); int64(s.SamplePoints) > avail {
		logrus.Debugf("korg: %s declares %d sample points, data holds %d", cf.Path(), s.SamplePoints, avail)
		s.SamplePoints = uint32(avail)
	}

	s.raw.SeekFrame(0)

	return s, nil
}

// IsCompressed reports whether the sample data is compressed.
func (s *KSFSample) IsCompressed() bool {
	return s.Attributes&0x10 != 0
}

// CompressionID returns the compression scheme of a compressed sample.
func (s *KSFSample) CompressionID() uint8 {
	return s.Attributes & 0x0f
}

// Use2ndStart reports whether playback starts at Start2.
func (s *KSFSample) Use2ndStart() bool {
	return s.Attributes&0x20 == 0
}

// FrameSize returns the size of one frame in bytes.
func (s *KSFSample) FrameSize() int {
	return pcm.FrameSize(int(s.BitDepth), int(s.Channels))
}

// TotalFrames returns the number of sample points.
func (s *KSFSample) TotalFrames() int64 {
	return int64(s.SamplePoints)
}

// Format describes the decoded PCM.
func (s *KSFSample) Format() pcm.Format {
	return pcm.Format{Channels: int(s.Channels), BitDepth: int(s.BitDepth), SampleRate: int(s.SampleRate)}
}

// Pos returns the current position in sample points.
func (s *KSFSample) Pos() int64 {
	return s.raw.Pos()
}

// SetPos moves the read position and returns the new position.
func (s *KSFSample) SetPos(frames int64, whence chunk.Whence) int64 {
	var pos int64

	switch whence {
	case chunk.Current:
		pos = s.Pos() + frames
	case chunk.End:
		pos = s.TotalFrames() - 1 - frames
	case chunk.Backward:
		pos = s.Pos() - frames
	default:
		pos = frames
	}

	pos = min(max(pos, 0), s.TotalFrames())
	p, _ := s.raw.SeekFrame(pos)

	return p
}

// Read reads up to frames sample points into dst as little endian PCM.
func (s *KSFSample) Read(dst []byte, frames int) (int, error) {
	if s.IsCompressed() {
		return 0, ErrCompressed
	}

	frames = min(frames, int(s.TotalFrames()-s.Pos()))
	if frames <= 0 {
		return 0, nil
	}

	n, err := s.raw.ReadFrames(dst, frames)
	if n == 0 {
		return 0, nil
	}

	return n, err
}

// ReadFrames implements pcm.FrameReader.
func (s *KSFSample) ReadFrames(dst []byte, frames int) (int, error) {
	return s.Read(dst, frames)
}

// SeekFrame implements pcm.FrameReader.
func (s *KSFSample) SeekFrame(frame int64) (int64, error) {
	return s.SetPos(frame, chunk.Start), nil
}

// LoadSampleData caches the whole sample in RAM.
func (s *KSFSample) LoadSampleData() (*pcm.Buffer, error) {
	return s.LoadSampleDataWithNullSamplesExtension(int(s.SamplePoints), 0)
}

// LoadSampleDataWithNullSamplesExtension caches count sample points
// followed by nullCount silent ones.
func (s *KSFSample) LoadSampleDataWithNullSamplesExtension(count, nullCount int) (*pcm.Buffer, error) {
	if s.IsCompressed() {
		return nil, ErrCompressed
	}

	buf, err := pcm.LoadWithNullExtension(s, int(s.SamplePoints), count, nullCount, s.FrameSize())
	if err != nil {
		return nil, fmt.Errorf("korg sample %q: %w", s.Name, err)
	}

	s.cache = *buf

	return &s.cache, nil
}

// ReleaseSampleData drops the RAM cache.
func (s *KSFSample) ReleaseSampleData() {
	s.cache.Release()
}

// Cache returns the RAM cache.
func (s *KSFSample) Cache() *pcm.Buffer {
	return &s.cache
}

// Path returns the file the sample was read from.
func (s *KSFSample) Path() string {
	return s.cf.Path()
}

// Close releases the cache and the underlying file.
func (s *KSFSample) Close() error {
	if s == nil {
		return nil
	}

	s.cache.Release()

	return s.cf.Close()
}
