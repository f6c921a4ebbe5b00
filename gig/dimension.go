package gig

import "fmt"

// DimensionType is the controller or source that splits a region.
type DimensionType uint8

const (
	DimensionNone               DimensionType = 0x00
	DimensionSampleChannel      DimensionType = 0x80
	DimensionLayer              DimensionType = 0x81
	DimensionVelocity           DimensionType = 0x82
	DimensionChannelAftertouch  DimensionType = 0x83
	DimensionReleaseTrigger     DimensionType = 0x84
	DimensionKeyboard           DimensionType = 0x85
	DimensionRoundRobin         DimensionType = 0x86
	DimensionRandom             DimensionType = 0x87
	DimensionSmartMIDI          DimensionType = 0x88
	DimensionRoundRobinKeyboard DimensionType = 0x89
	DimensionModWheel           DimensionType = 0x01
	DimensionBreath             DimensionType = 0x02
	DimensionFoot               DimensionType = 0x04
	DimensionPortamentoTime     DimensionType = 0x05
	DimensionEffect1            DimensionType = 0x0c
	DimensionEffect2            DimensionType = 0x0d
	DimensionGenPurpose1        DimensionType = 0x10
	DimensionSustainPedal       DimensionType = 0x40
	DimensionPortamento         DimensionType = 0x41
	DimensionSostenutoPedal     DimensionType = 0x42
	DimensionSoftPedal          DimensionType = 0x43
)

var dimensionNames = map[DimensionType]string{
	DimensionNone:               "none",
	DimensionSampleChannel:      "samplechannel",
	DimensionLayer:              "layer",
	DimensionVelocity:           "velocity",
	DimensionChannelAftertouch:  "channelaftertouch",
	DimensionReleaseTrigger:     "releasetrigger",
	DimensionKeyboard:           "keyboard",
	DimensionRoundRobin:         "roundrobin",
	DimensionRandom:             "random",
	DimensionSmartMIDI:          "smartmidi",
	DimensionRoundRobinKeyboard: "roundrobinkeyboard",
	DimensionModWheel:           "modwheel",
	DimensionBreath:             "breath",
	DimensionFoot:               "foot",
	DimensionPortamentoTime:     "portamentotime",
	DimensionEffect1:            "effect1",
	DimensionEffect2:            "effect2",
	DimensionGenPurpose1:        "genpurpose1",
	DimensionSustainPedal:       "sustainpedal",
	DimensionPortamento:         "portamento",
	DimensionSostenutoPedal:     "sostenutopedal",
	DimensionSoftPedal:          "softpedal",
}

func (d DimensionType) String() string {
	if name, ok := dimensionNames[d]; ok {
		return name
	}

	return fmt.Sprintf("dimension(0x%02x)", uint8(d))
}

// SplitType tells how a controller value selects a zone.
type SplitType uint8

const (
	// SplitNormal divides the 0..127 controller range into equal zones.
	SplitNormal SplitType = iota
	// SplitBit uses the value directly as the zone number.
	SplitBit
)

// splitTypeOf returns the split type implied by a dimension type.
func splitTypeOf(d DimensionType) SplitType {
	switch d {
	case DimensionNone, DimensionSampleChannel, DimensionLayer, DimensionReleaseTrigger,
		DimensionKeyboard, DimensionRoundRobin, DimensionRandom, DimensionSmartMIDI,
		DimensionRoundRobinKeyboard:
		return SplitBit
	default:
		return SplitNormal
	}
}

// DimensionDef is one active split axis of a region.
type DimensionDef struct {
	Type     DimensionType
	Bits     uint8
	Zones    uint8
	Split    SplitType
	ZoneSize int
}

func (d *DimensionDef) resolve() {
	d.Split = splitTypeOf(d.Type)
	d.ZoneSize = 0

	if d.Split == SplitNormal && d.Zones > 0 {
		d.ZoneSize = 128 / int(d.Zones)
	}
}
