package korg

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/sirupsen/logrus"
)

const (
	msp1MinSize    = 18
	rlp1RecordSize = 18
	sampleNameSize = 12

	// SkippedSample is the file name of a region without sample.
	SkippedSample = "SKIPPEDSAMPL"
	// InternalSamplePrefix marks regions using ROM samples of the instrument.
	InternalSamplePrefix = "INTERNAL"
)

// KMPRegion is one key range of a multisample.
type KMPRegion struct {
	parent *KMPInstrument

	OriginalKey    uint8
	Transpose      bool
	TopKey         uint8
	Tune           int8
	Level          int8
	Pan            uint8
	FilterCutoff   int8
	SampleFileName string
}

// KMPInstrument is a Korg multisample: a list of regions referring to KSF
// files next to it.
type KMPInstrument struct {
	path string

	Name       string
	Name24     string
	Attributes uint8
	Regions    []*KMPRegion
}

// OpenKMP opens and parses the KMP file at path.
func OpenKMP(path string) (*KMPInstrument, error) {
	cf, err := chunk.Open(path, chunk.Options{
		ByteOrder: binary.BigEndian,
		Layout:    chunk.LayoutFlat,
		FormType:  ckMSP1,
	})
	if err != nil {
		return nil, err
	}
	defer cf.Close()

	root := cf.Root()
	ins := &KMPInstrument{path: path}

	msp := root.Subchunk(ckMSP1)
	if msp == nil {
		return nil, formatError(path, "not a Korg multisample file, MSP1", chunk.ErrChunkNotFound)
	}

	if msp.Size < msp1MinSize {
		return nil, formatError(path, fmt.Sprintf("MSP1 chunk of %d bytes", msp.Size), errShortChunk)
	}

	r := msp.Fields()
	ins.Name = r.String(name16Size)
	count := int(r.Uint8())
	ins.Attributes = r.Uint8()

	if r.Err() != nil {
		return nil, formatError(path, "MSP1 chunk", r.Err())
	}

	if ck := root.Subchunk(ckNAME); ck != nil {
		if name, err := ck.ReadString(name24Size); err == nil {
			ins.Name24 = name
		}
	}

	rlp := root.Subchunk(ckRLP1)
	if rlp == nil {
		return nil, formatError(path, "RLP1", chunk.ErrChunkNotFound)
	}

	if int(rlp.Size) < count*rlp1RecordSize {
		return nil, formatError(path, fmt.Sprintf("RLP1 chunk of %d bytes for %d regions", rlp.Size, count), errShortChunk)
	}

	r = rlp.Fields()

	for range count {
		reg := &KMPRegion{parent: ins}

		key := r.Uint8()
		reg.OriginalKey = key & 0x7f
		reg.Transpose = key&0x80 != 0
		reg.TopKey = r.Uint8() & 0x7f
		reg.Tune = r.Int8()
		reg.Level = r.Int8()
		reg.Pan = r.Uint8()
		reg.FilterCutoff = r.Int8()
		reg.SampleFileName = r.String(sampleNameSize)

		if r.Err() != nil {
			return nil, formatError(path, "RLP1 record", r.Err())
		}

		ins.Regions = append(ins.Regions, reg)
	}

	logrus.Debugf("korg: %s: multisample %q, %d regions", path, ins.Name, len(ins.Regions))

	return ins, nil
}

// FileName returns the path the instrument was read from.
func (ins *KMPInstrument) FileName() string {
	return ins.path
}

// DisplayName prefers the long name when the file has one.
func (ins *KMPInstrument) DisplayName() string {
	if ins.Name24 != "" {
		return ins.Name24
	}

	return ins.Name
}

// HasExternalSample reports whether the region refers to a KSF file. The
// skipped sample and internal sample names never do.
func (r *KMPRegion) HasExternalSample() bool {
	return r.SampleFileName != SkippedSample && !strings.HasPrefix(r.SampleFileName, InternalSamplePrefix)
}

// FullSampleFileName returns the path of the region's KSF file: the KMP
// path without its extension, used as a directory, joined with the stored
// name.
func (r *KMPRegion) FullSampleFileName() string {
	base := r.parent.path
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}

	return base + string(os.PathSeparator) + r.SampleFileName
}

// Instrument returns the multisample owning the region.
func (r *KMPRegion) Instrument() *KMPInstrument {
	return r.parent
}
