package gig

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/internal/chunktest"
)

type testWave struct {
	name       string
	channels   int
	bits       int
	data       []byte
	compressed bool
	group      uint16

	loop      bool
	loopStart uint32
	loopEnd   uint32
	playCount uint32
}

func waveNode(w testWave) chunk.Node {
	align := w.channels * w.bits / 8
	format := chunktest.LE().
		U16(1).
		U16(uint16(w.channels)).
		U32(44100).
		U32(uint32(44100 * align)).
		U16(uint16(align)).
		U16(uint16(w.bits))

	children := []chunk.Node{
		chunktest.Chunk("fmt ", format.Bytes()),
		chunktest.List("INFO", chunktest.Chunk("INAM", []byte(w.name+"\x00"))),
		chunktest.Chunk("3gix", chunktest.LE().U16(w.group).Bytes()),
	}

	smpl := chunktest.LE().U32(0).U32(0).U32(22675).U32(60).U32(0).U32(0).U32(0)
	if w.loop {
		smpl.U32(1).U32(0).U32(0).U32(0).U32(w.loopStart).U32(w.loopEnd).U32(0).U32(w.playCount)
	} else {
		smpl.U32(0).U32(0)
	}

	children = append(children, chunktest.Chunk("smpl", smpl.Bytes()))

	if w.compressed {
		children = append(children, chunktest.Chunk("ewav", chunktest.LE().U32(0).Bytes()))
	}

	children = append(children, chunktest.Chunk("data", w.data))

	return chunktest.List("wave", children...)
}

// poolOffsets returns the wave pool offset of every wave list.
func poolOffsets(waves []chunk.Node) []uint32 {
	out := make([]uint32, len(waves))
	off := int64(0)

	for i, w := range waves {
		out[i] = uint32(off)
		off += 8 + w.Size() + w.Size()%2
	}

	return out
}

type testDimRegion struct {
	loopType   LoopType
	loopStart  uint32
	loopLength uint32
	velCurve   uint8
	velScaling uint8
	velUpper   uint8
	upper      [8]uint8
}

func dimRegionNode(d testDimRegion) chunk.Node {
	wsmp := chunktest.LE().U32(20).U16(60).S16(0).S32(0).U32(0)
	if d.loopLength > 0 {
		wsmp.U32(1).U32(16).U32(uint32(d.loopType)).U32(d.loopStart).U32(d.loopLength)
	} else {
		wsmp.U32(0)
	}

	ewa := make([]byte, 148)
	ewa[96] = d.velCurve
	ewa[97] = d.velCurve
	ewa[98] = d.velScaling
	ewa[124] = d.velUpper
	ewa[138] = 5*uint8(CurveLinear) + 4
	copy(ewa[140:], d.upper[:])

	return chunktest.List("3ewl",
		chunktest.Chunk("wsmp", wsmp.Bytes()),
		chunktest.Chunk("3ewa", ewa),
	)
}

type testRegion struct {
	keyLow, keyHigh uint16
	dims            []DimensionDef
	pool            []uint32
	dimRegions      []testDimRegion
}

func regionNode(r testRegion, v3 bool) chunk.Node {
	rgnh := chunktest.LE().U16(r.keyLow).U16(r.keyHigh).U16(0).U16(127).U16(0).U16(0).U16(0)
	wlnk := chunktest.LE().U16(0).U16(0).U32(0).U32(r.pool[0])

	slots := 5
	if v3 {
		slots = 8
	}

	lnk := chunktest.LE().U32(uint32(len(r.dimRegions)))
	bitpos := 0

	for i := range slots {
		if i >= len(r.dims) {
			lnk.Zero(8)
			continue
		}

		d := r.dims[i]
		lnk.U8(uint8(d.Type)).U8(d.Bits).U8(uint8(bitpos)).U8(0).U8(d.Zones).Zero(3)
		bitpos += int(d.Bits)
	}

	for _, p := range r.pool {
		lnk.U32(p)
	}

	var ewls []chunk.Node
	for _, d := range r.dimRegions {
		ewls = append(ewls, dimRegionNode(d))
	}

	return chunktest.List("rgn2",
		chunktest.Chunk("rgnh", rgnh.Bytes()),
		chunktest.Chunk("wlnk", wlnk.Bytes()),
		chunktest.Chunk("3lnk", lnk.Bytes()),
		chunktest.List("3prg", ewls...),
	)
}

func instrumentNode(name string, bank, program uint32, regions []chunk.Node, extra ...chunk.Node) chunk.Node {
	insh := chunktest.LE().U32(uint32(len(regions))).U32(bank).U32(program)
	ewg := chunktest.LE().U16(0).S32(-10).S16(5).S16(12).U8(36<<1 | 1).U8(96)

	children := []chunk.Node{
		chunktest.Chunk("insh", insh.Bytes()),
		chunktest.List("INFO", chunktest.Chunk("INAM", []byte(name+"\x00"))),
		chunktest.List("lart", chunktest.Chunk("3ewg", ewg.Bytes())),
		chunktest.List("lrgn", regions...),
	}

	return chunktest.List("ins ", append(children, extra...)...)
}

type testFile struct {
	v3          bool
	waves       []chunk.Node
	usePtbl     bool
	instruments []chunk.Node
	extra       []chunk.Node
}

func (tf testFile) bytes() []byte {
	var ms uint32 = 2 << 16
	if tf.v3 {
		ms = 3 << 16
	}

	children := []chunk.Node{
		chunktest.Chunk("vers", chunktest.LE().U32(ms).U32(1).Bytes()),
		chunktest.Chunk("colh", chunktest.LE().U32(uint32(len(tf.instruments))).Bytes()),
	}

	if tf.usePtbl {
		ptbl := chunktest.LE().U32(8).U32(uint32(len(tf.waves)))
		for _, off := range poolOffsets(tf.waves) {
			ptbl.U32(off).U32(0)
		}

		children = append(children, chunktest.Chunk("ptbl", ptbl.Bytes()))
	}

	children = append(children,
		chunktest.List("wvpl", tf.waves...),
		chunktest.List("lins", tf.instruments...),
	)
	children = append(children, tf.extra...)

	return chunktest.RIFF("DLS ", children...)
}

func (tf testFile) open(t *testing.T) *File {
	t.Helper()

	data := tf.bytes()

	f, err := Decode(bytes.NewReader(data), int64(len(data)), Options{Tables: NewTables()})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	return f
}

func pcm16(values []int) []byte {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
	}

	return out
}

func ramp(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func decode16(b []byte) []int {
	out := make([]int, len(b)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
	}

	return out
}

func decode24(b []byte) []int32 {
	out := make([]int32, len(b)/3)
	for i := range out {
		out[i] = get24(b[3*i:])
	}

	return out
}
