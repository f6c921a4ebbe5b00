// Package fixture writes small sample library files for tests.
package fixture

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/internal/chunktest"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Ramp returns n samples counting up from start in steps of step.
func Ramp(n, start, step int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i*step
	}

	return out
}

func create(t *testing.T, path string) *os.File {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}

	return f
}

// WAV writes interleaved integer samples as a PCM WAV file.
func WAV(t *testing.T, path string, channels, rate, bits int, data []int) string {
	t.Helper()

	f := create(t, path)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bits, channels, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}

	return path
}

// AIFF writes interleaved integer samples as an AIFF file.
func AIFF(t *testing.T, path string, channels, rate, bits int, data []int) string {
	t.Helper()

	f := create(t, path)
	defer f.Close()

	enc := aiff.NewEncoder(f, rate, bits, channels)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode aiff: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close aiff encoder: %v", err)
	}

	return path
}

func pcm16(order binary.ByteOrder, data []int) []byte {
	out := make([]byte, 0, 2*len(data))
	for _, v := range data {
		out = order.AppendUint16(out, uint16(int16(v)))
	}

	return out
}

// KSF returns a 16-bit big endian Korg sample file.
func KSF(name string, channels, rate int, loopStart, loopEnd uint32, data []int) []byte {
	frames := uint32(len(data) / channels)

	smp := chunktest.BE().Str(name, 16).U8(0).U8(0).U16(0).U32(0).U32(loopStart).U32(loopEnd)
	smd := chunktest.BE().U32(uint32(rate)).U8(0x20).S8(0).U8(uint8(channels)).U8(16).U32(frames).
		Raw(pcm16(binary.BigEndian, data)...)

	return chunktest.Flat(binary.BigEndian,
		chunktest.Chunk("SMP1", smp.Bytes()),
		chunktest.Chunk("SMD1", smd.Bytes()),
	)
}

// KMPRegion is one region of a KMP file.
type KMPRegion struct {
	RootKey, TopKey uint8
	Tune            int8
	File            string
}

// KMP returns a Korg multisample file.
func KMP(name string, regions ...KMPRegion) []byte {
	msp := chunktest.BE().Str(name, 16).U8(uint8(len(regions))).U8(0)

	rlp := chunktest.BE()
	for _, r := range regions {
		rlp.U8(r.RootKey).U8(r.TopKey).S8(r.Tune).S8(0).U8(64).S8(0).Str(r.File, 12)
	}

	return chunktest.Flat(binary.BigEndian,
		chunktest.Chunk("MSP1", msp.Bytes()),
		chunktest.Chunk("RLP1", rlp.Bytes()),
	)
}

// GIGWave is one wave pool entry. LoopEnd > LoopStart adds a forward loop.
type GIGWave struct {
	Name      string
	Channels  int
	Data      []int
	LoopStart uint32
	LoopEnd   uint32
}

// GIGRegion is a dimensionless region playing one wave.
type GIGRegion struct {
	KeyLow, KeyHigh uint16
	Wave            uint32
	UnityNote       uint16
}

// GIGInstrument is one instrument of a gig file.
type GIGInstrument struct {
	Name    string
	Regions []GIGRegion
}

func gigWave(w GIGWave) chunk.Node {
	align := w.Channels * 2
	format := chunktest.LE().U16(1).U16(uint16(w.Channels)).U32(44100).U32(uint32(44100 * align)).U16(uint16(align)).U16(16)

	smpl := chunktest.LE().U32(0).U32(0).U32(22675).U32(60).U32(0).U32(0).U32(0)
	if w.LoopEnd > w.LoopStart {
		smpl.U32(1).U32(0).U32(0).U32(0).U32(w.LoopStart).U32(w.LoopEnd).U32(0).U32(0)
	} else {
		smpl.U32(0).U32(0)
	}

	return chunktest.List("wave",
		chunktest.Chunk("fmt ", format.Bytes()),
		chunktest.List("INFO", chunktest.Chunk("INAM", []byte(w.Name+"\x00"))),
		chunktest.Chunk("smpl", smpl.Bytes()),
		chunktest.Chunk("data", pcm16(binary.LittleEndian, w.Data)),
	)
}

func gigRegion(r GIGRegion) chunk.Node {
	rgnh := chunktest.LE().U16(r.KeyLow).U16(r.KeyHigh).U16(0).U16(127).U16(0).U16(0).U16(0)
	wlnk := chunktest.LE().U16(0).U16(0).U32(0).U32(r.Wave)
	wsmp := chunktest.LE().U32(20).U16(r.UnityNote).S16(0).S32(0).U32(0).U32(0)

	return chunktest.List("rgn2",
		chunktest.Chunk("rgnh", rgnh.Bytes()),
		chunktest.Chunk("wlnk", wlnk.Bytes()),
		chunktest.List("3prg", chunktest.List("3ewl", chunktest.Chunk("wsmp", wsmp.Bytes()))),
	)
}

// GIG returns a version 2 gig file without pool table, so region wave
// indices are wave pool positions.
func GIG(waves []GIGWave, instruments []GIGInstrument) []byte {
	var pool []chunk.Node
	for _, w := range waves {
		pool = append(pool, gigWave(w))
	}

	var lins []chunk.Node

	for _, ins := range instruments {
		var regions []chunk.Node
		for _, r := range ins.Regions {
			regions = append(regions, gigRegion(r))
		}

		insh := chunktest.LE().U32(uint32(len(regions))).U32(0).U32(0)
		lins = append(lins, chunktest.List("ins ",
			chunktest.Chunk("insh", insh.Bytes()),
			chunktest.List("INFO", chunktest.Chunk("INAM", []byte(ins.Name+"\x00"))),
			chunktest.List("lrgn", regions...),
		))
	}

	return chunktest.RIFF("DLS ",
		chunktest.Chunk("vers", chunktest.LE().U32(2<<16).U32(0).Bytes()),
		chunktest.Chunk("colh", chunktest.LE().U32(uint32(len(instruments))).Bytes()),
		chunktest.List("wvpl", pool...),
		chunktest.List("lins", lins...),
	)
}

// EXSZone is one zone of an EXS file. Group -1 means no group.
type EXSZone struct {
	Name                     string
	RootKey, KeyLow, KeyHigh uint8
	LoopOn                   bool
	LoopStart, LoopEnd       uint32
	Group, Sample            int32
}

func exsBlock(typ uint8, name string, payload []byte) []byte {
	return chunktest.LE().U8(0x01).U8(0x01).U8(0).U8(typ).
		U32(uint32(len(payload))).U32(0).U32(0).
		Str("TBOS", 4).Str(name, 64).Raw(payload...).Bytes()
}

// EXS returns a little endian EXS file with one group and the given
// sample file names.
func EXS(name string, zones []EXSZone, sampleFiles []string) []byte {
	out := exsBlock(0, name, nil)

	for _, z := range zones {
		loop := uint8(0)
		if z.LoopOn {
			loop = 1
		}

		p := chunktest.LE().U8(0).U8(z.RootKey).S8(0).S8(0).S8(0).U8(0).U8(z.KeyLow).U8(z.KeyHigh).
			Zero(1).U8(0).U8(127).Zero(1).
			U32(0).U32(0).U32(z.LoopStart).U32(z.LoopEnd).U32(0).
			S8(0).U8(loop).U8(0).Zero(42).
			U8(0).U8(0).U8(0).S8(0).Zero(1).U8(0).Zero(5).
			S32(z.Group).S32(z.Sample)
		out = append(out, exsBlock(1, z.Name, p.Bytes())...)
	}

	out = append(out, exsBlock(2, "group", make([]byte, 32))...)

	for _, f := range sampleFiles {
		p := chunktest.LE().U32(0).U32(0).U32(44100).U32(16).U32(1).U32(1).Zero(4).
			Str("EVAW", 4).U32(0).U32(0).Zero(40).Str("", 256).Str(f, 256)
		out = append(out, exsBlock(3, f, p.Bytes())...)
	}

	return out
}
