package fixture

import (
	"encoding/binary"

	"github.com/cwbudde/samplelib/internal/chunktest"
)

// SF2Sample is one sample of a soundfont. Loop points are relative to the
// sample's first point.
type SF2Sample struct {
	Name               string
	Data               []int
	Rate               uint32
	RootKey            uint8
	LoopStart, LoopEnd uint32
}

// SF2Zone is one instrument region playing sample Sample.
type SF2Zone struct {
	KeyLow, KeyHigh uint8
	VelLow, VelHigh uint8
	Sample          uint16
	Loop            bool
}

// SF2Preset is a preset with a key range over one instrument of the same
// name made of Zones.
type SF2Preset struct {
	Name            string
	KeyLow, KeyHigh uint8
	Zones           []SF2Zone
}

const (
	genKeyRange    = 43
	genVelRange    = 44
	genInstrument  = 41
	genSampleID    = 53
	genSampleModes = 54

	// sampleGap is the silence the format requires after every sample.
	sampleGap = 46
)

func keyRange(lo, hi uint8) uint16 {
	return uint16(lo) | uint16(hi)<<8
}

// SF2 returns a soundfont with 16-bit mono samples and one instrument per
// preset.
func SF2(samples []SF2Sample, presets []SF2Preset) []byte {
	var (
		wave []int
		shdr = chunktest.LE()
	)

	for _, s := range samples {
		start := uint32(len(wave))
		wave = append(wave, s.Data...)
		end := uint32(len(wave))
		wave = append(wave, make([]int, sampleGap)...)

		shdr.Str(s.Name, 20).U32(start).U32(end).U32(start + s.LoopStart).U32(start + s.LoopEnd).
			U32(s.Rate).U8(s.RootKey).S8(0).U16(0).U16(1)
	}

	shdr.Str("EOS", 20).Zero(26)

	var (
		inst, ibag, igen = chunktest.LE(), chunktest.LE(), chunktest.LE()
		phdr, pbag, pgen = chunktest.LE(), chunktest.LE(), chunktest.LE()
		ibags, igens     uint16
		pbags, pgens     uint16
	)

	for i, p := range presets {
		inst.Str(p.Name, 20).U16(ibags)

		for _, z := range p.Zones {
			ibag.U16(igens).U16(0)
			ibags++

			modes := uint16(0)
			if z.Loop {
				modes = 1
			}

			igen.U16(genKeyRange).U16(keyRange(z.KeyLow, z.KeyHigh)).
				U16(genVelRange).U16(keyRange(z.VelLow, z.VelHigh)).
				U16(genSampleModes).U16(modes).
				U16(genSampleID).U16(z.Sample)
			igens += 4
		}

		phdr.Str(p.Name, 20).U16(uint16(i)).U16(0).U16(pbags).U32(0).U32(0).U32(0)
		pbag.U16(pgens).U16(0)
		pbags++

		pgen.U16(genKeyRange).U16(keyRange(p.KeyLow, p.KeyHigh)).
			U16(genInstrument).U16(uint16(i))
		pgens += 2
	}

	inst.Str("EOI", 20).U16(ibags)
	ibag.U16(igens).U16(0)
	igen.U16(0).U16(0)
	phdr.Str("EOP", 20).U16(0).U16(0).U16(pbags).U32(0).U32(0).U32(0)
	pbag.U16(pgens).U16(0)
	pgen.U16(0).U16(0)

	return chunktest.RIFF("sfbk",
		chunktest.List("INFO",
			chunktest.Chunk("ifil", chunktest.LE().U16(2).U16(1).Bytes()),
			chunktest.Chunk("isng", []byte("EMU8000\x00")),
			chunktest.Chunk("INAM", []byte("fixture\x00")),
		),
		chunktest.List("sdta", chunktest.Chunk("smpl", pcm16(binary.LittleEndian, wave))),
		chunktest.List("pdta",
			chunktest.Chunk("phdr", phdr.Bytes()),
			chunktest.Chunk("pbag", pbag.Bytes()),
			chunktest.Chunk("pmod", make([]byte, 10)),
			chunktest.Chunk("pgen", pgen.Bytes()),
			chunktest.Chunk("inst", inst.Bytes()),
			chunktest.Chunk("ibag", ibag.Bytes()),
			chunktest.Chunk("imod", make([]byte, 10)),
			chunktest.Chunk("igen", igen.Bytes()),
			chunktest.Chunk("shdr", shdr.Bytes()),
		),
	)
}
