package gig

import (
	"math"

	"github.com/cwbudde/samplelib/chunk"
)

// SampleLoop is one loop of a wsmp chunk. Length is in sample points.
type SampleLoop struct {
	Type   LoopType
	Start  uint32
	Length uint32
}

// VCFType is the filter type of a dimension region.
type VCFType uint8

const (
	VCFLowpass      VCFType = 0x00
	VCFBandpass     VCFType = 0x01
	VCFHighpass     VCFType = 0x02
	VCFBandreject   VCFType = 0x03
	VCFLowpassTurbo VCFType = 0xff
)

// DimensionRegion is one articulation case of a region.
type DimensionRegion struct {
	list *chunk.List

	// SampleIndex indexes File.Samples; -1 means silence.
	SampleIndex int

	UnityNote               uint8
	FineTune                int16
	Gain                    int32
	NoSampleDepthTruncation bool
	NoSampleCompression     bool
	SampleLoops             []SampleLoop

	LFO1Frequency      float64
	LFO2Frequency      float64
	LFO3Frequency      float64
	LFO1InternalDepth  uint16
	LFO1ControlDepth   uint16
	LFO2InternalDepth  uint16
	LFO2ControlDepth   uint16
	LFO3InternalDepth  int16
	LFO3ControlDepth   int16
	EG1Attack          float64
	EG1Decay1          float64
	EG1Decay2          float64
	EG1Release         float64
	EG1Sustain         uint16
	EG1PreAttack       uint16
	EG1InfiniteSustain bool
	EG1Hold            bool
	EG2Attack          float64
	EG2Decay1          float64
	EG2Decay2          float64
	EG2Release         float64
	EG2Sustain         uint16
	EG2PreAttack       uint16
	EG2InfiniteSustain bool
	EG3Attack          float64
	EG3Depth           int16

	VelocityResponseCurve          CurveType
	VelocityResponseDepth          uint8
	ReleaseVelocityResponseCurve   CurveType
	ReleaseVelocityResponseDepth   uint8
	VelocityResponseCurveScaling   uint8
	AttenuationControllerThreshold int8
	AttenuationController          uint8
	InvertAttenuationController    bool
	SampleStartOffset              uint16
	Pan                            int8
	SelfMask                       bool
	ChannelOffset                  uint8
	MSDecode                       bool
	SustainDefeat                  bool
	ReleaseTriggerDecay            uint8

	VCFEnabled                    bool
	VCFType                       VCFType
	VCFCutoff                     uint8
	VCFCutoffController           CutoffController
	VCFCutoffControllerInvert     bool
	VCFVelocityScale              uint8
	VCFResonance                  uint8
	VCFResonanceDynamic           bool
	VCFKeyboardTracking           bool
	VCFKeyboardTrackingBreakpoint uint8
	VCFVelocityCurve              CurveType
	VCFVelocityDynamicRange       uint8

	// VelocityUpperLimit is the legacy single velocity split point.
	VelocityUpperLimit uint8
	// DimensionUpperLimits holds the upper controller value of this
	// region's zone, per dimension. All zero means evenly sized zones.
	DimensionUpperLimits [8]uint8

	// VelocityZones maps a velocity to a velocity zone when the region
	// uses custom velocity splits; nil otherwise.
	VelocityZones []uint8

	velocityTable *ResponseTable
	releaseTable  *ResponseTable
	cutoffTable   *ResponseTable
}

var _ ChunkBacked = (*DimensionRegion)(nil)

func defaultDimensionRegion() DimensionRegion {
	return DimensionRegion{
		SampleIndex:                  -1,
		UnityNote:                    60,
		VelocityResponseCurve:        CurveNonLinear,
		VelocityResponseDepth:        3,
		ReleaseVelocityResponseCurve: CurveNonLinear,
		ReleaseVelocityResponseDepth: 3,
		VelocityResponseCurveScaling: 32,
		VCFVelocityCurve:             CurveLinear,
		VCFVelocityDynamicRange:      4,
		VCFResonanceDynamic:          true,
	}
}

func expDecode(x int32) float64 {
	return math.Pow(1.000000008813822, float64(x))
}

func decodeCurve(v uint8) (CurveType, uint8) {
	switch {
	case v < 5:
		return CurveNonLinear, v
	case v < 10:
		return CurveLinear, v - 5
	case v < 15:
		return CurveSpecial, v - 10
	default:
		return CurveUnknown, 0
	}
}

func newDimensionRegion(lst *chunk.List, tables *Tables) *DimensionRegion {
	dr := defaultDimensionRegion()
	dr.list = lst

	if ck := lst.Subchunk(ckWsmp); ck != nil {
		dr.readWsmp(ck)
	}

	if ck := lst.Subchunk(ck3ewa); ck != nil {
		dr.read3ewa(ck)
	}

	dr.bindTables(tables)

	return &dr
}

func (dr *DimensionRegion) readWsmp(ck *chunk.Chunk) {
	r := ck.Fields()
	hdr := r.Uint32()
	dr.UnityNote = uint8(r.Uint16())
	dr.FineTune = r.Int16()
	dr.Gain = r.Int32()
	opts := r.Uint32()
	dr.NoSampleDepthTruncation = opts&0x01 != 0
	dr.NoSampleCompression = opts&0x02 != 0
	loops := r.Uint32()

	if r.Err() != nil {
		return
	}

	r.Seek(int64(hdr))

	for i := uint32(0); i < loops && r.Has(16); i++ {
		_ = r.Uint32() // loop record size
		dr.SampleLoops = append(dr.SampleLoops, SampleLoop{
			Type:   LoopType(r.Uint32()),
			Start:  r.Uint32(),
			Length: r.Uint32(),
		})
	}
}

func (dr *DimensionRegion) read3ewa(ck *chunk.Chunk) {
	r := ck.Fields()

	_ = r.Uint32()
	dr.LFO3Frequency = expDecode(r.Int32())
	dr.EG3Attack = expDecode(r.Int32())
	r.Skip(2)
	dr.LFO1InternalDepth = r.Uint16()
	r.Skip(2)
	dr.LFO3InternalDepth = r.Int16()
	r.Skip(2)
	dr.LFO1ControlDepth = r.Uint16()
	r.Skip(2)
	dr.LFO3ControlDepth = r.Int16()
	dr.EG1Attack = expDecode(r.Int32())
	dr.EG1Decay1 = expDecode(r.Int32())
	r.Skip(2)
	dr.EG1Sustain = r.Uint16()
	dr.EG1Release = expDecode(r.Int32())
	r.Skip(4) // EG1 and EG2 controllers and their options
	dr.LFO1Frequency = expDecode(r.Int32())
	dr.EG2Attack = expDecode(r.Int32())
	dr.EG2Decay1 = expDecode(r.Int32())
	r.Skip(2)
	dr.EG2Sustain = r.Uint16()
	dr.EG2Release = expDecode(r.Int32())
	r.Skip(2)
	dr.LFO2ControlDepth = r.Uint16()
	dr.LFO2Frequency = expDecode(r.Int32())
	r.Skip(2)
	dr.LFO2InternalDepth = r.Uint16()

	eg1Decay2 := r.Int32()
	dr.EG1Decay2 = expDecode(eg1Decay2)
	dr.EG1InfiniteSustain = eg1Decay2 == 0x7fffffff
	r.Skip(2)
	dr.EG1PreAttack = r.Uint16()

	eg2Decay2 := r.Int32()
	dr.EG2Decay2 = expDecode(eg2Decay2)
	dr.EG2InfiniteSustain = eg2Decay2 == 0x7fffffff
	r.Skip(2)
	dr.EG2PreAttack = r.Uint16()

	dr.VelocityResponseCurve, dr.VelocityResponseDepth = decodeCurve(r.Uint8())
	dr.ReleaseVelocityResponseCurve, dr.ReleaseVelocityResponseDepth = decodeCurve(r.Uint8())
	dr.VelocityResponseCurveScaling = r.Uint8()
	dr.AttenuationControllerThreshold = r.Int8()
	r.Skip(4)
	dr.SampleStartOffset = r.Uint16()
	r.Skip(2)
	_ = r.Uint8() // pitch track and dimension bypass

	pan := r.Uint8()
	if pan < 64 {
		dr.Pan = int8(pan)
	} else {
		dr.Pan = int8(-(int(pan) - 63))
	}

	dr.SelfMask = r.Uint8()&0x01 != 0
	r.Skip(1)

	lfo3 := r.Uint8()
	dr.InvertAttenuationController = lfo3&0x80 != 0
	dr.AttenuationController = r.Uint8()
	r.Skip(2) // LFO2 and LFO1 controllers

	eg3Depth := r.Uint16()
	if eg3Depth <= 1200 {
		dr.EG3Depth = int16(eg3Depth)
	} else {
		dr.EG3Depth = -int16((eg3Depth ^ 0xfff) + 1)
	}

	r.Skip(2)
	dr.ChannelOffset = r.Uint8() / 4

	opts := r.Uint8()
	dr.MSDecode = opts&0x01 != 0
	dr.SustainDefeat = opts&0x02 != 0
	r.Skip(2)
	dr.VelocityUpperLimit = r.Uint8()
	r.Skip(3)
	dr.ReleaseTriggerDecay = r.Uint8()
	r.Skip(2)
	dr.EG1Hold = r.Uint8()&0x80 != 0

	cutoff := r.Uint8()
	dr.VCFEnabled = cutoff&0x80 != 0
	dr.VCFCutoff = cutoff & 0x7f
	dr.VCFCutoffController = CutoffController(r.Uint8())

	scale := r.Uint8()
	dr.VCFCutoffControllerInvert = scale&0x80 != 0
	dr.VCFVelocityScale = scale & 0x7f
	r.Skip(1)

	res := r.Uint8()
	dr.VCFResonance = res & 0x7f
	dr.VCFResonanceDynamic = res&0x80 == 0

	bp := r.Uint8()
	dr.VCFKeyboardTracking = bp&0x80 != 0
	dr.VCFKeyboardTrackingBreakpoint = bp & 0x7f

	vel := r.Uint8()
	dr.VCFVelocityDynamicRange = vel % 5
	dr.VCFVelocityCurve = CurveType(vel / 5)

	dr.VCFType = VCFType(r.Uint8())
	if dr.VCFType == VCFLowpass && lfo3&0x40 != 0 {
		dr.VCFType = VCFLowpassTurbo
	}

	if r.Has(8) {
		copy(dr.DimensionUpperLimits[:], r.Bytes(8))
	}
}

func (dr *DimensionRegion) bindTables(t *Tables) {
	dr.velocityTable = t.Velocity(dr.VelocityResponseCurve, dr.VelocityResponseDepth, dr.VelocityResponseCurveScaling)
	dr.releaseTable = t.Velocity(dr.ReleaseVelocityResponseCurve, dr.ReleaseVelocityResponseDepth, 0)
	dr.cutoffTable = t.Cutoff(dr.VCFVelocityCurve, dr.VCFVelocityDynamicRange, dr.VCFVelocityScale, dr.VCFCutoffController)
}

// Offset returns the file offset of the region's 3ewl list, or -1 for
// regions created in memory.
func (dr *DimensionRegion) Offset() int64 {
	if dr.list == nil {
		return -1
	}

	return dr.list.FileOffset()
}

// ChunkID returns the list type of the backing chunk.
func (dr *DimensionRegion) ChunkID() chunk.ID {
	return list3ewl
}

// VelocityTable returns the shared amplitude response table.
func (dr *DimensionRegion) VelocityTable() *ResponseTable {
	return dr.velocityTable
}

// ReleaseVelocityTable returns the shared release response table.
func (dr *DimensionRegion) ReleaseVelocityTable() *ResponseTable {
	return dr.releaseTable
}

// CutoffVelocityTable returns the shared filter cutoff response table.
func (dr *DimensionRegion) CutoffVelocityTable() *ResponseTable {
	return dr.cutoffTable
}

// GetVelocityAttenuation returns the amplitude factor for a velocity.
func (dr *DimensionRegion) GetVelocityAttenuation(velocity uint8) float64 {
	return dr.velocityTable[velocity&0x7f]
}

// GetVelocityRelease returns the release factor for a velocity.
func (dr *DimensionRegion) GetVelocityRelease(velocity uint8) float64 {
	return dr.releaseTable[velocity&0x7f]
}

// GetVelocityCutoff returns the cutoff factor for a velocity.
func (dr *DimensionRegion) GetVelocityCutoff(velocity uint8) float64 {
	return dr.cutoffTable[velocity&0x7f]
}

// clone copies the region's parameters into a new, unbacked region.
func (dr *DimensionRegion) clone() *DimensionRegion {
	c := *dr
	c.list = nil
	c.SampleLoops = append([]SampleLoop(nil), dr.SampleLoops...)
	c.VelocityZones = nil

	return &c
}
