package korg

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/internal/chunktest"
)

type testKSF struct {
	name       string
	longName   string
	bank       uint8
	start      uint32
	start2     uint32
	loopStart  uint32
	loopEnd    uint32
	rate       uint32
	attributes uint8
	channels   uint8
	bits       uint8
	points     uint32
	frames     []int16
}

func (k testKSF) bytes() []byte {
	smp := chunktest.BE().Str(k.name, 16).U8(k.bank).
		U8(uint8(k.start >> 16)).U16(uint16(k.start)).
		U32(k.start2).U32(k.loopStart).U32(k.loopEnd)

	smd := chunktest.BE().U32(k.rate).U8(k.attributes).S8(-3).U8(k.channels).U8(k.bits).U32(k.points)
	for _, v := range k.frames {
		if k.bits == 8 {
			smd.S8(int8(v))
		} else {
			smd.S16(v)
		}
	}

	nodes := []chunk.Node{
		chunktest.Chunk("SMP1", smp.Bytes()),
		chunktest.Chunk("SMD1", smd.Bytes()),
	}
	if k.longName != "" {
		nodes = append(nodes, chunktest.Chunk("NAME", chunktest.BE().Str(k.longName, 24).Bytes()))
	}

	return chunktest.Flat(binary.BigEndian, nodes...)
}

func ramp(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i*100 - 1000)
	}

	return out
}

func decode16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}

	return out
}

func TestOpenKSF(t *testing.T) {
	frames := ramp(40)
	path := chunktest.WriteFile(t, t.TempDir(), "PIANO.KSF", testKSF{
		name:       "Piano C4",
		bank:       2,
		start:      0x012345,
		start2:     7,
		loopStart:  4,
		loopEnd:    19,
		rate:       48000,
		attributes: 0x20,
		channels:   2,
		bits:       16,
		points:     20,
		frames:     frames,
	}.bytes())

	s, err := OpenKSF(path)
	if err != nil {
		t.Fatalf("OpenKSF: %v", err)
	}
	defer s.Close()

	if s.Name != "Piano C4" || s.DefaultBank != 2 {
		t.Fatalf("header: name %q bank %d", s.Name, s.DefaultBank)
	}

	if s.Start != 0x012345 || s.Start2 != 7 || s.LoopStart != 4 || s.LoopEnd != 19 {
		t.Fatalf("offsets: %d %d %d %d", s.Start, s.Start2, s.LoopStart, s.LoopEnd)
	}

	if s.SampleRate != 48000 || s.LoopTune != -3 || s.Channels != 2 || s.BitDepth != 16 {
		t.Fatalf("format: %+v", s)
	}

	if s.IsCompressed() || s.Use2ndStart() {
		t.Fatalf("attributes 0x20: compressed %v, 2nd start %v", s.IsCompressed(), s.Use2ndStart())
	}

	if s.FrameSize() != 4 || s.TotalFrames() != 20 {
		t.Fatalf("frame size %d, total %d", s.FrameSize(), s.TotalFrames())
	}

	buf := make([]byte, 8*s.FrameSize())

	n, err := s.Read(buf, 8)
	if err != nil || n != 8 {
		t.Fatalf("Read: %d, %v", n, err)
	}

	got := decode16(buf[:n*s.FrameSize()])
	for i, v := range got {
		if v != frames[i] {
			t.Fatalf("sample %d: got %d, want %d", i, v, frames[i])
		}
	}

	if pos := s.SetPos(2, chunk.End); pos != 17 {
		t.Fatalf("SetPos from end: got %d, want 17", pos)
	}

	n, _ = s.Read(buf, 8)
	if n != 3 {
		t.Fatalf("read at tail: got %d frames, want 3", n)
	}

	if got := decode16(buf[:4]); got[0] != frames[34] || got[1] != frames[35] {
		t.Fatalf("tail frame: got %v, want %v", got, frames[34:36])
	}

	if n, _ := s.Read(buf, 8); n != 0 {
		t.Fatalf("read past end: got %d frames", n)
	}

	cache, err := s.LoadSampleDataWithNullSamplesExtension(5, 2)
	if err != nil {
		t.Fatalf("LoadSampleDataWithNullSamplesExtension: %v", err)
	}

	if cache.Size != 20 || cache.NullExtensionSize != 8 || len(cache.Data) != 28 {
		t.Fatalf("cache: size %d, null %d, len %d", cache.Size, cache.NullExtensionSize, len(cache.Data))
	}

	if got := decode16(cache.Data[16:20]); got[0] != frames[8] {
		t.Fatalf("cache frame 4: got %v", got)
	}

	s.ReleaseSampleData()

	if s.Cache().Data != nil {
		t.Fatal("cache still held after release")
	}
}

func TestKSFAttributes(t *testing.T) {
	tests := []struct {
		attributes uint8
		compressed bool
		id         uint8
		second     bool
	}{
		{0x00, false, 0, true},
		{0x20, false, 0, false},
		{0x13, true, 3, true},
		{0x3f, true, 15, false},
	}

	for _, tt := range tests {
		s := &KSFSample{Attributes: tt.attributes}
		if s.IsCompressed() != tt.compressed || s.CompressionID() != tt.id || s.Use2ndStart() != tt.second {
			t.Errorf("attributes %#x: compressed %v id %d 2nd start %v", tt.attributes, s.IsCompressed(), s.CompressionID(), s.Use2ndStart())
		}
	}
}

func TestKSFLongNameAndClamp(t *testing.T) {
	path := chunktest.WriteFile(t, t.TempDir(), "S.KSF", testKSF{
		name:     "short",
		longName: "A much longer name",
		rate:     44100,
		channels: 1,
		bits:     8,
		points:   100,
		frames:   []int16{1, -1, 2, -2},
	}.bytes())

	s, err := OpenKSF(path)
	if err != nil {
		t.Fatalf("OpenKSF: %v", err)
	}
	defer s.Close()

	if s.Name != "A much longer name" {
		t.Fatalf("name: got %q", s.Name)
	}

	if s.TotalFrames() != 4 {
		t.Fatalf("declared points beyond the data: got %d frames, want 4", s.TotalFrames())
	}

	buf := make([]byte, 4)
	if n, err := s.Read(buf, 4); n != 4 || err != nil || int8(buf[1]) != -1 || int8(buf[3]) != -2 {
		t.Fatalf("8-bit read: %d, %v, %v", n, err, buf)
	}
}

func TestKSFCompressed(t *testing.T) {
	path := chunktest.WriteFile(t, t.TempDir(), "C.KSF", testKSF{
		attributes: 0x11, channels: 1, bits: 16, points: 2, frames: []int16{1, 2},
	}.bytes())

	s, err := OpenKSF(path)
	if err != nil {
		t.Fatalf("OpenKSF: %v", err)
	}
	defer s.Close()

	if _, err := s.Read(make([]byte, 4), 2); !errors.Is(err, ErrCompressed) {
		t.Fatalf("Read: got %v, want ErrCompressed", err)
	}

	if _, err := s.LoadSampleData(); !errors.Is(err, ErrCompressed) {
		t.Fatalf("LoadSampleData: got %v, want ErrCompressed", err)
	}
}

func TestOpenKSFErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
	}{
		{"wrong first chunk", chunktest.Flat(binary.BigEndian, chunktest.Chunk("SMD1", make([]byte, 12)))},
		{"short SMP1", chunktest.Flat(binary.BigEndian, chunktest.Chunk("SMP1", make([]byte, 20)))},
		{"missing SMD1", chunktest.Flat(binary.BigEndian, chunktest.Chunk("SMP1", make([]byte, 32)))},
		{"short SMD1", chunktest.Flat(binary.BigEndian,
			chunktest.Chunk("SMP1", make([]byte, 32)),
			chunktest.Chunk("SMD1", make([]byte, 8)))},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := chunktest.WriteFile(t, dir, filepath.Base(tt.name)+string(rune('a'+i))+".ksf", tt.data)

			if _, err := OpenKSF(path); !errors.Is(err, samplelib.ErrFormat) {
				t.Fatalf("got %v, want a format error", err)
			}
		})
	}

	if _, err := OpenKSF(filepath.Join(dir, "missing.ksf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: got %v", err)
	}
}

func kmpBytes(name string, long string, regions ...[]byte) []byte {
	msp := chunktest.BE().Str(name, 16).U8(uint8(len(regions))).U8(0)

	rlp := chunktest.BE()
	for _, r := range regions {
		rlp.Raw(r...)
	}

	nodes := []chunk.Node{chunktest.Chunk("MSP1", msp.Bytes())}
	if long != "" {
		nodes = append(nodes, chunktest.Chunk("NAME", chunktest.BE().Str(long, 24).Bytes()))
	}

	nodes = append(nodes, chunktest.Chunk("RLP1", rlp.Bytes()))

	return chunktest.Flat(binary.BigEndian, nodes...)
}

func region(key, top uint8, tune, level int8, pan uint8, cutoff int8, file string) []byte {
	return chunktest.BE().U8(key).U8(top).S8(tune).S8(level).U8(pan).S8(cutoff).Str(file, 12).Bytes()
}

func TestOpenKMP(t *testing.T) {
	dir := t.TempDir()
	path := chunktest.WriteFile(t, dir, "PIANO.KMP", kmpBytes("Grand", "Grand Piano Layer",
		region(0x80|60, 72, -5, 3, 64, -10, "PIANO_00.KSF"),
		region(48, 0xff, 0, 0, 0, 0, SkippedSample),
		region(36, 47, 0, 0, 0, 0, "INTERNAL0003"),
	))

	ins, err := OpenKMP(path)
	if err != nil {
		t.Fatalf("OpenKMP: %v", err)
	}

	if ins.Name != "Grand" || ins.Name24 != "Grand Piano Layer" || ins.DisplayName() != "Grand Piano Layer" {
		t.Fatalf("names: %q %q", ins.Name, ins.Name24)
	}

	if len(ins.Regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(ins.Regions))
	}

	r := ins.Regions[0]
	if r.OriginalKey != 60 || !r.Transpose || r.TopKey != 72 || r.Tune != -5 || r.Level != 3 || r.Pan != 64 || r.FilterCutoff != -10 {
		t.Fatalf("region 0: %+v", r)
	}

	if !r.HasExternalSample() {
		t.Fatal("region 0 should have an external sample")
	}

	want := filepath.Join(dir, "PIANO", "PIANO_00.KSF")
	if got := r.FullSampleFileName(); got != want {
		t.Fatalf("FullSampleFileName: got %q, want %q", got, want)
	}

	if ins.Regions[1].TopKey != 0x7f || ins.Regions[1].Transpose {
		t.Fatalf("region 1 keys: %+v", ins.Regions[1])
	}

	for _, r := range ins.Regions[1:] {
		if r.HasExternalSample() {
			t.Fatalf("%q should not resolve to a file", r.SampleFileName)
		}
	}
}

func TestKMPRegionWithoutExtension(t *testing.T) {
	ins := &KMPInstrument{path: filepath.Join("lib", "DRUMS")}
	r := &KMPRegion{parent: ins, SampleFileName: "KICK.KSF"}

	want := filepath.Join("lib", "DRUMS", "KICK.KSF")
	if got := r.FullSampleFileName(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOpenKMPErrors(t *testing.T) {
	dir := t.TempDir()

	short := chunktest.Flat(binary.BigEndian, chunktest.Chunk("MSP1", make([]byte, 10)))
	if _, err := OpenKMP(chunktest.WriteFile(t, dir, "short.kmp", short)); !errors.Is(err, samplelib.ErrFormat) {
		t.Fatalf("short MSP1: got %v", err)
	}

	truncated := chunktest.Flat(binary.BigEndian,
		chunktest.Chunk("MSP1", chunktest.BE().Str("x", 16).U8(2).U8(0).Bytes()),
		chunktest.Chunk("RLP1", region(60, 72, 0, 0, 0, 0, "A.KSF")))
	if _, err := OpenKMP(chunktest.WriteFile(t, dir, "truncated.kmp", truncated)); !errors.Is(err, samplelib.ErrFormat) {
		t.Fatalf("truncated RLP1: got %v", err)
	}

	noRegions := chunktest.Flat(binary.BigEndian,
		chunktest.Chunk("MSP1", chunktest.BE().Str("x", 16).U8(0).U8(0).Bytes()))
	if _, err := OpenKMP(chunktest.WriteFile(t, dir, "norlp.kmp", noRegions)); !errors.Is(err, samplelib.ErrFormat) {
		t.Fatalf("missing RLP1: got %v", err)
	}
}
