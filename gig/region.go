package gig

import (
	"encoding/binary"
	"fmt"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/chunk"
)

const (
	maxDimRegions = 256
	noPoolIndex   = 0xffffffff
)

// Region is a key range of an instrument, split by up to eight dimensions
// into a dense array of dimension regions.
type Region struct {
	file *File
	list *chunk.List

	KeyLow, KeyHigh uint8
	VelLow, VelHigh uint8
	FormatOptions   uint16
	KeyGroup        uint16
	Layer           uint16
	Layers          int

	// SampleIndex is the region level sample from wlnk, -1 if none.
	SampleIndex int

	Dimensions       []DimensionDef
	DimensionRegions []*DimensionRegion
}

var _ ChunkBacked = (*Region)(nil)

func (f *File) newRegion(lst *chunk.List) (*Region, error) {
	r := &Region{file: f, list: lst, SampleIndex: -1, Layers: 1, KeyHigh: 127, VelHigh: 127}

	if ck := lst.Subchunk(ckRgnh); ck != nil {
		fr := ck.Fields()
		r.KeyLow = uint8(fr.Uint16())
		r.KeyHigh = uint8(fr.Uint16())
		r.VelLow = uint8(fr.Uint16())
		r.VelHigh = uint8(fr.Uint16())
		r.FormatOptions = fr.Uint16()
		r.KeyGroup = fr.Uint16()

		if fr.Has(2) {
			r.Layer = fr.Uint16()
		}

		if fr.Err() != nil {
			return nil, fmt.Errorf("rgnh chunk: %w", fr.Err())
		}
	}

	if ck := lst.Subchunk(ckWlnk); ck != nil {
		fr := ck.Fields()
		fr.Skip(8) // options, phase group, channel
		idx := fr.Uint32()

		if fr.Err() == nil {
			r.SampleIndex = f.sampleFromPool(idx)
		}
	}

	if prg := lst.Sublist(list3prg); prg != nil {
		for _, ewl := range prg.ListsOfType(list3ewl) {
			r.DimensionRegions = append(r.DimensionRegions, newDimensionRegion(ewl, f.tables))
		}
	}

	if len(r.DimensionRegions) == 0 {
		return nil, errNoDimRegions
	}

	if ck := lst.Subchunk(ck3lnk); ck != nil {
		if err := r.read3lnk(ck); err != nil {
			return nil, err
		}
	} else {
		r.DimensionRegions = r.DimensionRegions[:1]
		r.DimensionRegions[0].SampleIndex = r.SampleIndex
	}

	r.updateVelocityZones()

	return r, nil
}

func (r *Region) maxDimensions() int {
	if r.file != nil && r.file.Version.Major > 2 {
		return 8
	}

	return 5
}

func (r *Region) read3lnk(ck *chunk.Chunk) error {
	fr := ck.Fields()
	count := int(fr.Uint32())
	totalBits := 0

	for range r.maxDimensions() {
		typ := DimensionType(fr.Uint8())
		bits := fr.Uint8()
		fr.Skip(2) // bit position and mask
		zones := fr.Uint8()
		fr.Skip(3)

		if typ == DimensionNone {
			continue
		}

		if zones == 0 {
			zones = 1 << bits
		}

		def := DimensionDef{Type: typ, Bits: bits, Zones: zones}
		def.resolve()
		r.Dimensions = append(r.Dimensions, def)
		totalBits += int(bits)

		if typ == DimensionLayer {
			r.Layers = int(zones)
		}
	}

	if fr.Err() != nil {
		return fmt.Errorf("3lnk chunk: %w", fr.Err())
	}

	want := 1 << totalBits
	if totalBits > 8 || len(r.DimensionRegions) < want {
		return &samplelib.IndexError{Record: "region", Field: "dimension region", Index: want - 1, Limit: len(r.DimensionRegions)}
	}

	if count != want {
		// trust the dimension definitions over the stored count
		count = want
	}

	r.DimensionRegions = r.DimensionRegions[:want]

	fr.Seek(4 + int64(r.maxDimensions())*8)

	for i := 0; i < count && fr.Has(4); i++ {
		r.DimensionRegions[i].SampleIndex = r.file.sampleFromPool(fr.Uint32())
	}

	return nil
}

// Offset returns the file offset of the region list.
func (r *Region) Offset() int64 {
	if r.list == nil {
		return -1
	}

	return r.list.FileOffset()
}

// ChunkID returns the list type of the region.
func (r *Region) ChunkID() chunk.ID {
	if r.list == nil {
		return listRgn2
	}

	return r.list.Type
}

// TotalBits returns the number of dimension bits in use.
func (r *Region) TotalBits() int {
	n := 0
	for _, d := range r.Dimensions {
		n += int(d.Bits)
	}

	return n
}

// Dimension returns the definition of the given type, or nil.
func (r *Region) Dimension(t DimensionType) *DimensionDef {
	for i := range r.Dimensions {
		if r.Dimensions[i].Type == t {
			return &r.Dimensions[i]
		}
	}

	return nil
}

func (r *Region) dimensionIndex(t DimensionType) int {
	for i := range r.Dimensions {
		if r.Dimensions[i].Type == t {
			return i
		}
	}

	return -1
}

func (r *Region) bitPos(i int) int {
	pos := 0
	for j := range i {
		pos += int(r.Dimensions[j].Bits)
	}

	return pos
}

// DimensionRegionIndex returns the flat index selected by the per-dimension
// zone numbers in bits. Values wider than their dimension are masked.
func (r *Region) DimensionRegionIndex(bits [8]uint8) int {
	idx := 0
	shift := 0

	for i, d := range r.Dimensions {
		mask := (1 << d.Bits) - 1
		idx |= (int(bits[i]) & mask) << shift
		shift += int(d.Bits)
	}

	return idx
}

// GetDimensionRegionByBit returns the dimension region for the given zone
// numbers, one per dimension in definition order.
func (r *Region) GetDimensionRegionByBit(bits [8]uint8) *DimensionRegion {
	idx := r.DimensionRegionIndex(bits)
	if idx >= len(r.DimensionRegions) {
		return nil
	}

	return r.DimensionRegions[idx]
}

// GetDimensionRegionByValue returns the dimension region for the given
// controller values, one per dimension in definition order. Velocity is
// resolved last through the custom velocity splits when present.
func (r *Region) GetDimensionRegionByValue(values [8]uint8) *DimensionRegion {
	if len(r.DimensionRegions) == 0 {
		return nil
	}

	velDim := -1
	velPos := 0
	pos := 0
	idx := 0

	for i, d := range r.Dimensions {
		if d.Type == DimensionVelocity {
			velDim = i
			velPos = pos
			pos += int(d.Bits)

			continue
		}

		var bits int

		switch d.Split {
		case SplitNormal:
			if r.DimensionRegions[0].DimensionUpperLimits[i] != 0 {
				for bits = 0; bits < int(d.Zones); bits++ {
					j := bits << pos
					if j >= len(r.DimensionRegions) || values[i] <= r.DimensionRegions[j].DimensionUpperLimits[i] {
						break
					}
				}

				bits = min(bits, int(d.Zones)-1)
			} else if d.ZoneSize > 0 {
				bits = int(values[i]) / d.ZoneSize
			}
		case SplitBit:
			bits = int(values[i])
		}

		idx |= (bits & ((1 << d.Bits) - 1)) << pos
		pos += int(d.Bits)
	}

	dr := r.DimensionRegions[idx]

	if velDim >= 0 {
		d := r.Dimensions[velDim]
		v := values[velDim] & 0x7f

		var bits int

		switch {
		case dr.VelocityZones != nil:
			bits = int(dr.VelocityZones[v])
		case d.ZoneSize > 0:
			bits = int(v) / d.ZoneSize
		}

		idx |= (bits & ((1 << d.Bits) - 1)) << velPos
		dr = r.DimensionRegions[idx]
	}

	return dr
}

// updateVelocityZones builds the velocity to zone tables of every
// dimension region whose velocity zone is zero, when custom velocity splits
// are defined.
func (r *Region) updateVelocityZones() {
	for _, dr := range r.DimensionRegions {
		dr.VelocityZones = nil
	}

	vd := r.dimensionIndex(DimensionVelocity)
	if vd < 0 {
		return
	}

	def := r.Dimensions[vd]
	shift := r.bitPos(vd)
	velMask := ((1 << def.Bits) - 1) << shift
	v3 := r.file != nil && r.file.Version.Major > 2

	for i, dr := range r.DimensionRegions {
		if i&velMask != 0 {
			continue
		}

		useDimLimits := dr.DimensionUpperLimits[vd] != 0
		if !useDimLimits && (v3 || dr.VelocityUpperLimit == 0) {
			continue
		}

		table := make([]uint8, 128)
		t := 0

		for z := 0; z < int(def.Zones); z++ {
			k := i | z<<shift
			if k >= len(r.DimensionRegions) {
				break
			}

			limit := int(r.DimensionRegions[k].VelocityUpperLimit)
			if useDimLimits {
				limit = int(r.DimensionRegions[k].DimensionUpperLimits[vd])
			}

			for ; t <= limit && t < 128; t++ {
				table[t] = uint8(z)
			}
		}

		for ; t < 128; t++ {
			table[t] = def.Zones - 1
		}

		dr.VelocityZones = table
	}
}

// AddDimension adds a split axis. Every existing dimension region is copied
// into the new zones and the array is rebuilt; the new zones get evenly
// spaced upper limits. The sample channel dimension is always placed first.
func (r *Region) AddDimension(def DimensionDef) error {
	if def.Zones < 2 {
		return fmt.Errorf("%w: a dimension needs at least two zones", ErrDimension)
	}

	if def.Bits < 1 {
		return fmt.Errorf("%w: a dimension needs at least one bit", ErrDimension)
	}

	if int(def.Zones) > 1<<def.Bits {
		return fmt.Errorf("%w: %d zones do not fit %d bits", ErrDimension, def.Zones, def.Bits)
	}

	if def.Type == DimensionSampleChannel && (def.Zones != 2 || def.Bits != 1) {
		return fmt.Errorf("%w: sample channel dimensions have exactly two zones and one bit", ErrDimension)
	}

	maxDims := r.maxDimensions()
	if len(r.Dimensions) >= maxDims {
		return fmt.Errorf("%w: at most %d dimensions", ErrDimension, maxDims)
	}

	curBits := r.TotalBits()
	if curBits+int(def.Bits) > maxDims || 1<<(curBits+int(def.Bits)) > maxDimRegions {
		return fmt.Errorf("%w: at most %d dimension bits", ErrDimension, maxDims)
	}

	if r.dimensionIndex(def.Type) >= 0 {
		return fmt.Errorf("%w: region already has a %s dimension", ErrDimension, def.Type)
	}

	pos := len(r.Dimensions)
	if def.Type == DimensionSampleChannel {
		pos = 0
	}

	bitpos := r.bitPos(pos)

	// make room in the upper limit arrays
	for _, dr := range r.DimensionRegions {
		for j := len(r.Dimensions); j > pos; j-- {
			dr.DimensionUpperLimits[j] = dr.DimensionUpperLimits[j-1]
		}

		dr.DimensionUpperLimits[pos] = 0
	}

	def.resolve()
	r.Dimensions = append(r.Dimensions, DimensionDef{})
	copy(r.Dimensions[pos+1:], r.Dimensions[pos:])
	r.Dimensions[pos] = def

	lowMask := (1 << bitpos) - 1
	newBits := int(def.Bits)
	rebuilt := make([]*DimensionRegion, 1<<(curBits+newBits))

	for i, dr := range r.DimensionRegions {
		low := i & lowMask
		high := i >> bitpos

		for z := 0; z < 1<<newBits; z++ {
			j := high<<(bitpos+newBits) | z<<bitpos | low
			if z == 0 {
				rebuilt[j] = dr
			} else {
				rebuilt[j] = dr.clone()
			}
		}
	}

	for z := 0; z < int(def.Zones); z++ {
		limit := uint8((z+1)*128/int(def.Zones) - 1)

		for i := 0; i < 1<<curBits; i++ {
			j := (i&^lowMask)<<newBits | z<<bitpos | i&lowMask
			rebuilt[j].DimensionUpperLimits[pos] = limit
		}
	}

	r.DimensionRegions = rebuilt

	if def.Type == DimensionLayer {
		r.Layers = int(def.Zones)
	}

	r.syncLegacyVelocityLimits()
	r.updateVelocityZones()

	return nil
}

// DeleteDimension removes the dimension of the given type, keeping the
// dimension regions of its zone zero.
func (r *Region) DeleteDimension(t DimensionType) error {
	di := r.dimensionIndex(t)
	if di < 0 {
		return fmt.Errorf("%w: region has no %s dimension", ErrDimension, t)
	}

	lowBits := r.bitPos(di)
	bits := int(r.Dimensions[di].Bits)
	upperBits := r.TotalBits() - lowBits - bits
	lowMask := (1 << lowBits) - 1

	rebuilt := make([]*DimensionRegion, 1<<(lowBits+upperBits))

	for j := range rebuilt {
		low := j & lowMask
		high := j >> lowBits
		rebuilt[j] = r.DimensionRegions[high<<(lowBits+bits)|low]
	}

	n := len(r.Dimensions)

	for _, dr := range rebuilt {
		for i := di + 1; i < n; i++ {
			dr.DimensionUpperLimits[i-1] = dr.DimensionUpperLimits[i]
		}

		dr.DimensionUpperLimits[n-1] = 127
	}

	r.Dimensions = append(r.Dimensions[:di], r.Dimensions[di+1:]...)
	r.DimensionRegions = rebuilt

	if t == DimensionLayer {
		r.Layers = 1
	}

	r.syncLegacyVelocityLimits()
	r.updateVelocityZones()

	return nil
}

// syncLegacyVelocityLimits mirrors the velocity dimension's upper limits
// into the single byte used by version 2 files.
func (r *Region) syncLegacyVelocityLimits() {
	vd := r.dimensionIndex(DimensionVelocity)

	for _, dr := range r.DimensionRegions {
		if vd < 0 {
			dr.VelocityUpperLimit = 0
			continue
		}

		dr.VelocityUpperLimit = dr.DimensionUpperLimits[vd]
	}
}

// EncodeUpperLimits returns the on-disk upper limit field of dimension
// region i: a single velocity byte for version 2 files, one byte per
// dimension slot for later versions.
func (r *Region) EncodeUpperLimits(i int) []byte {
	dr := r.DimensionRegions[i]

	if r.maxDimensions() > 5 {
		out := make([]byte, 8)
		copy(out, dr.DimensionUpperLimits[:])

		return out
	}

	limit := dr.VelocityUpperLimit
	if vd := r.dimensionIndex(DimensionVelocity); vd >= 0 && dr.DimensionUpperLimits[vd] != 0 {
		limit = dr.DimensionUpperLimits[vd]
	}

	return []byte{limit}
}

// EncodeLinkChunk returns the 3lnk payload describing the current
// dimensions and sample references.
func (r *Region) EncodeLinkChunk() []byte {
	le := binary.LittleEndian
	out := le.AppendUint32(nil, uint32(len(r.DimensionRegions)))
	bitpos := 0

	for i := range r.maxDimensions() {
		if i >= len(r.Dimensions) {
			out = append(out, make([]byte, 8)...)
			continue
		}

		d := r.Dimensions[i]
		mask := (1 << (bitpos + int(d.Bits))) - (1 << bitpos)
		out = append(out, byte(d.Type), d.Bits, byte(bitpos), byte(mask), d.Zones, 0, 0, 0)
		bitpos += int(d.Bits)
	}

	for _, dr := range r.DimensionRegions {
		out = le.AppendUint32(out, r.file.poolIndexOf(dr.SampleIndex))
	}

	return out
}
