package exs

import "fmt"

// NoGroup is the group index of a zone outside any group.
const NoGroup = -1

const (
	sampleMinSize  = 80
	sampleFullSize = 592
	pathSize       = 256
)

// Zone maps a key and velocity range to one sample.
type Zone struct {
	Index int
	Name  string

	Options       uint8
	RootKey       uint8
	FineTune      int8
	Pan           int8
	Volume        int8
	VolumeScale   uint8
	KeyLow        uint8
	KeyHigh       uint8
	VelLow        uint8
	VelHigh       uint8
	SampleStart   uint32
	SampleEnd     uint32
	LoopStart     uint32
	LoopEnd       uint32
	LoopCrossfade uint32
	LoopTune      int8
	LoopOptions   uint8
	LoopDirection uint8
	FlexOptions   uint8
	FlexSpeed     uint8
	TailTune      uint8
	CoarseTune    int8
	// Output is the output bus, or -1 for the main output.
	Output int
	Group  int
	Sample int
}

func (z *Zone) OneShot() bool         { return z.Options&0x01 != 0 }
func (z *Zone) Pitched() bool         { return z.Options&0x02 == 0 }
func (z *Zone) Reverse() bool         { return z.Options&0x04 != 0 }
func (z *Zone) VelocityRangeOn() bool { return z.Options&0x08 != 0 }
func (z *Zone) LoopEnabled() bool     { return z.LoopOptions&0x01 != 0 }
func (z *Zone) LoopEqualPower() bool  { return z.LoopOptions&0x02 != 0 }
func (z *Zone) LoopPlayToEnd() bool   { return z.LoopOptions&0x04 != 0 }

func decodeZone(b *Block) (*Zone, error) {
	c := b.Cursor()
	z := &Zone{Name: b.Name}

	z.Options = c.Byte()
	z.RootKey = c.Byte()
	z.FineTune = c.Int8()
	z.Pan = c.Int8()
	z.Volume = c.Int8()
	z.VolumeScale = c.Byte()
	z.KeyLow = c.Byte()
	z.KeyHigh = c.Byte()
	c.Skip(1)
	z.VelLow = c.Byte()
	z.VelHigh = c.Byte()
	c.Skip(1)
	z.SampleStart = c.Uint32()
	z.SampleEnd = c.Uint32()
	z.LoopStart = c.Uint32()
	z.LoopEnd = c.Uint32()
	z.LoopCrossfade = c.Uint32()
	z.LoopTune = c.Int8()
	z.LoopOptions = c.Byte()
	z.LoopDirection = c.Byte()
	c.Skip(42)
	z.FlexOptions = c.Byte()
	z.FlexSpeed = c.Byte()
	z.TailTune = c.Byte()
	z.CoarseTune = c.Int8()
	c.Skip(1)
	z.Output = int(c.Byte())
	c.Skip(5)
	z.Group = int(c.Int32())
	z.Sample = int(c.Int32())

	if c.Err() != nil {
		return nil, c.Err()
	}

	if z.Options&0x40 == 0 {
		z.Output = -1
	}

	if !z.VelocityRangeOn() {
		z.VelLow, z.VelHigh = 0, 127
	}

	return z, nil
}

// Group holds settings shared by its zones.
type Group struct {
	Name string

	Volume             int8
	Pan                int8
	Polyphony          uint8
	Options            uint8
	Exclusive          uint8
	VelLow             uint8
	VelHigh            uint8
	SampleSelectOffset uint8
	ReleaseTriggerTime uint16
}

func (g *Group) Mute() bool              { return g.Options&0x10 != 0 }
func (g *Group) ReleaseTrigger() bool    { return g.Options&0x40 != 0 }
func (g *Group) FixedSampleSelect() bool { return g.Options&0x80 != 0 }

func decodeGroup(b *Block) (*Group, error) {
	c := b.Cursor()
	g := &Group{Name: b.Name}

	g.Volume = c.Int8()
	g.Pan = c.Int8()
	g.Polyphony = c.Byte()
	g.Options = c.Byte()
	g.Exclusive = c.Byte()
	g.VelLow = c.Byte()
	g.VelHigh = c.Byte()
	g.SampleSelectOffset = c.Byte()
	c.Skip(8)
	g.ReleaseTriggerTime = c.Uint16()

	if c.Err() != nil {
		return nil, c.Err()
	}

	return g, nil
}

// Sample describes an external audio file.
type Sample struct {
	Name string

	WaveDataStart uint32
	Length        uint32
	SampleRate    uint32
	BitDepth      uint32
	Channels      uint32
	Channels2     uint32
	FileType      string
	FileSize      uint32
	Compressed    bool
	FilePath      string
	FileName      string
}

func decodeSample(b *Block) (*Sample, error) {
	c := b.Cursor()
	s := &Sample{Name: b.Name}

	s.WaveDataStart = c.Uint32()
	s.Length = c.Uint32()
	s.SampleRate = c.Uint32()
	s.BitDepth = c.Uint32()
	s.Channels = c.Uint32()
	s.Channels2 = c.Uint32()
	c.Skip(4)
	s.FileType = c.String(4)
	s.FileSize = c.Uint32()
	s.Compressed = c.Uint32() != 0

	if c.Err() != nil {
		return nil, c.Err()
	}

	if len(b.Payload) < sampleMinSize {
		return nil, fmt.Errorf("sample record of %d bytes: %w", len(b.Payload), errOutOfBounds)
	}

	c.Seek(sampleMinSize)
	s.FilePath = c.String(min(pathSize, c.Remaining()))
	s.FileName = b.Name

	if len(b.Payload) >= sampleFullSize {
		if name := c.String(pathSize); name != "" {
			s.FileName = name
		}
	}

	return s, nil
}

// Well known parameter ids.
const (
	ParamPitchBendUp   uint16 = 3
	ParamPitchBendDown uint16 = 4
	ParamMonoLegato    uint16 = 5
	ParamMasterVolume  uint16 = 7
	ParamMasterPan     uint16 = 8
	ParamCoarseTune    uint16 = 45
	ParamFineTune      uint16 = 46
)

// Params holds the global instrument parameters keyed by id.
type Params struct {
	Values map[uint16]int16
}

// Get returns the value of id and whether the file set it.
func (p *Params) Get(id uint16) (int16, bool) {
	if p == nil {
		return 0, false
	}

	v, ok := p.Values[id]

	return v, ok
}

// Value returns the value of id or def.
func (p *Params) Value(id uint16, def int16) int16 {
	if v, ok := p.Get(id); ok {
		return v
	}

	return def
}

// decode reads a leading count N. When the payload holds N id bytes and N
// values they form a fixed table; any bytes after it, or the whole payload
// when the table does not fit, are (u16 id, s16 value) pairs.
func (p *Params) decode(b *Block) error {
	c := b.Cursor()
	n := int(c.Uint32())

	if c.Err() != nil {
		return c.Err()
	}

	if n > 0 && n*3 <= c.Remaining() {
		ids := make([]uint8, n)
		for i := range ids {
			ids[i] = c.Byte()
		}

		for _, id := range ids {
			if v := c.Int16(); id != 0 {
				p.Values[uint16(id)] = v
			}
		}
	}

	for c.Remaining() >= 4 {
		id := c.Uint16()
		p.Values[id] = c.Int16()
	}

	return c.Err()
}
