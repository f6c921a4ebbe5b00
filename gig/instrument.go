package gig

import (
	"fmt"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/sirupsen/logrus"
)

// ScriptSlot assigns a real-time script to an instrument.
type ScriptSlot struct {
	// Script is the index into File.Scripts, -1 if the slot could not be
	// resolved.
	Script int
	Bypass bool
}

// Instrument is a playable patch made of regions.
type Instrument struct {
	file *File
	list *chunk.List

	Index int
	Name  string
	Info  *chunk.Info

	MIDIBank        uint16
	MIDIBankCoarse  uint8
	MIDIBankFine    uint8
	MIDIProgram     uint8
	IsDrum          bool
	DeclaredRegions int

	// from the 3ewg chunk
	EffectSend       uint16
	Attenuation      int32
	FineTune         int16
	PitchbendRange   int16
	PianoReleaseMode bool
	DimensionKeyLow  uint8
	DimensionKeyHigh uint8

	Regions     []*Region
	ScriptSlots []ScriptSlot
}

var _ ChunkBacked = (*Instrument)(nil)

func (f *File) newInstrument(lst *chunk.List, index int) (*Instrument, error) {
	ins := &Instrument{file: f, list: lst, Index: index, PitchbendRange: 2, DimensionKeyHigh: 127}

	ins.Info = chunk.ReadInfo(lst)
	if ins.Info != nil {
		ins.Name = ins.Info.Name
	}

	if ck := lst.Subchunk(ckInsh); ck != nil {
		fr := ck.Fields()
		ins.DeclaredRegions = int(fr.Uint32())
		bank := fr.Uint32()
		program := fr.Uint32()

		if fr.Err() != nil {
			return nil, fmt.Errorf("insh chunk: %w", fr.Err())
		}

		ins.MIDIBankCoarse = uint8((bank & 0x7f00) >> 8)
		ins.MIDIBankFine = uint8(bank & 0x7f)
		ins.MIDIBank = uint16(ins.MIDIBankCoarse)<<7 | uint16(ins.MIDIBankFine)
		ins.IsDrum = bank&0x80000000 != 0
		ins.MIDIProgram = uint8(program & 0x7f)
	}

	if lart := lst.Sublist(listLart); lart != nil {
		if ck := lart.Subchunk(ck3ewg); ck != nil {
			ins.read3ewg(ck)
		}
	}

	if lrgn := lst.Sublist(listLrgn); lrgn != nil {
		for _, rl := range lrgn.Sublists() {
			if rl.Type != listRgn && rl.Type != listRgn2 {
				continue
			}

			r, err := f.newRegion(rl)
			if err != nil {
				f.skip(fmt.Errorf("instrument %d region %d: %w", index, len(ins.Regions), err))
				continue
			}

			ins.Regions = append(ins.Regions, r)
		}
	}

	if ls := lst.Sublist(list3LS); ls != nil {
		if ck := ls.Subchunk(ckScsl); ck != nil {
			ins.readScriptSlots(ck)
		}
	}

	return ins, nil
}

func (ins *Instrument) read3ewg(ck *chunk.Chunk) {
	fr := ck.Fields()
	ins.EffectSend = fr.Uint16()
	ins.Attenuation = fr.Int32()
	ins.FineTune = fr.Int16()
	ins.PitchbendRange = fr.Int16()
	dimkeystart := fr.Uint8()
	ins.PianoReleaseMode = dimkeystart&0x01 != 0
	ins.DimensionKeyLow = dimkeystart >> 1
	ins.DimensionKeyHigh = fr.Uint8()

	if fr.Err() != nil {
		logrus.Debugf("gig: short 3ewg chunk in instrument %d", ins.Index)
	}
}

func (ins *Instrument) readScriptSlots(ck *chunk.Chunk) {
	fr := ck.Fields()
	headerSize := fr.Uint32()
	slotCount := int(fr.Uint32())
	slotSize := int(fr.Uint32())

	if fr.Err() != nil || slotSize < 8 {
		return
	}

	fr.Seek(int64(headerSize))

	for range slotCount {
		offset := fr.Uint32()
		bypass := fr.Uint32()&1 != 0
		fr.Skip(slotSize - 8)

		if fr.Err() != nil {
			break
		}

		ins.ScriptSlots = append(ins.ScriptSlots, ScriptSlot{
			Script: ins.file.scriptAt(int64(offset)),
			Bypass: bypass,
		})
	}
}

// Offset returns the file offset of the instrument list.
func (ins *Instrument) Offset() int64 {
	return ins.list.FileOffset()
}

// ChunkID returns the list type of the instrument.
func (ins *Instrument) ChunkID() chunk.ID {
	return listIns
}

// RegionForKey returns the first region whose key range contains key, or
// nil.
func (ins *Instrument) RegionForKey(key uint8) *Region {
	for _, r := range ins.Regions {
		if key >= r.KeyLow && key <= r.KeyHigh {
			return r
		}
	}

	return nil
}
