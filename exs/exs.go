// Package exs parses EXS24 sampler instruments: a stream of fixed header
// blocks carrying the instrument, its zones, groups, samples and global
// parameters.
package exs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/samplelib"
	"github.com/sirupsen/logrus"
)

// BlockType is the low nibble of the fourth header byte.
type BlockType uint8

const (
	TypeInstrument BlockType = 0x00
	TypeZone       BlockType = 0x01
	TypeGroup      BlockType = 0x02
	TypeSample     BlockType = 0x03
	TypeParams     BlockType = 0x04
	// TypeUnknown and above are skipped.
	TypeUnknown BlockType = 0x08
)

func (t BlockType) String() string {
	switch t {
	case TypeInstrument:
		return "instrument"
	case TypeZone:
		return "zone"
	case TypeGroup:
		return "group"
	case TypeSample:
		return "sample"
	case TypeParams:
		return "params"
	}

	return fmt.Sprintf("unknown(%#x)", uint8(t))
}

const (
	headerSize   = 84
	nameSize     = 64
	blockVersion = 0x01
	maxBlockSize = 1 << 24
)

var magics = map[string]bool{"TBOS": true, "SOBT": true, "JBOS": true, "SOBJ": true}

// Block is one header plus payload of the stream.
type Block struct {
	Type      BlockType
	BigEndian bool
	Major     uint8
	Minor     uint8
	Size      uint32
	Index     uint32
	Flags     uint32
	Magic     string
	Name      string
	Payload   []byte
}

func (b *Block) order() binary.ByteOrder {
	if b.BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// Cursor returns a cursor over the block payload.
func (b *Block) Cursor() *Cursor {
	return NewCursor(b.Payload, b.order())
}

// Instrument is a parsed EXS file.
type Instrument struct {
	Path      string
	Name      string
	BigEndian bool

	Zones   []*Zone
	Groups  []*Group
	Samples []*Sample
	Params  *Params
	Blocks  []*Block

	// Skipped holds zones dropped for referencing a missing group or sample.
	Skipped []*samplelib.IndexError
	// Malformed holds records whose payload was too short to decode.
	Malformed []error
	// Truncated is set when the stream ended in a broken block after the
	// instrument block. Everything before it was kept.
	Truncated error
}

// Open parses the EXS file at path.
func Open(path string) (*Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ins, err := parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, err
	}

	ins.Path = path

	return ins, nil
}

// Parse reads a block stream. The first block must be a valid instrument
// block; any failure there is fatal. Later failures end the stream and are
// recorded in Truncated.
func Parse(r io.Reader) (*Instrument, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*Instrument, error) {
	ins := &Instrument{Params: &Params{Values: map[uint16]int16{}}}

	for i := 0; ; i++ {
		b, err := readBlock(r)
		if errors.Is(err, io.EOF) {
			if i == 0 {
				return nil, formatError(path, "first block", errEmpty)
			}

			break
		}

		if err != nil {
			if i == 0 {
				return nil, formatError(path, "first block", err)
			}

			logrus.Debugf("exs: %s: stream truncated at block %d: %v", path, i, err)
			ins.Truncated = fmt.Errorf("block %d: %w", i, err)

			break
		}

		if i == 0 {
			if b.Type != TypeInstrument {
				return nil, formatError(path, fmt.Sprintf("first block is a %s block", b.Type), errNotInstrument)
			}

			if !magics[b.Magic] {
				return nil, formatError(path, fmt.Sprintf("magic %q", b.Magic), errBadMagic)
			}

			ins.Name = b.Name
			ins.BigEndian = b.BigEndian
		}

		ins.Blocks = append(ins.Blocks, b)
		ins.decode(b)
	}

	ins.resolve()

	logrus.Debugf("exs: %s: %d zones, %d groups, %d samples, %d skipped",
		path, len(ins.Zones), len(ins.Groups), len(ins.Samples), len(ins.Skipped))

	return ins, nil
}

func readBlock(r io.Reader) (*Block, error) {
	var hdr [headerSize]byte

	n, err := io.ReadFull(r, hdr[:])
	if n == 0 && errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	if err != nil {
		return nil, fmt.Errorf("%d of %d bytes: %w", n, headerSize, errTruncatedHeader)
	}

	b := &Block{
		BigEndian: hdr[0] != 0x01,
		Major:     hdr[1],
		Minor:     hdr[2],
		Type:      BlockType(hdr[3] & 0x0f),
	}

	if b.Major != blockVersion {
		return nil, fmt.Errorf("version %d.%d: %w", b.Major, b.Minor, errVersion)
	}

	c := NewCursor(hdr[4:], b.order())
	b.Size = c.Uint32()
	b.Index = c.Uint32()
	b.Flags = c.Uint32()
	b.Magic = string(hdr[16:20])
	b.Name = cString(hdr[20 : 20+nameSize])

	if b.Size > maxBlockSize {
		return nil, fmt.Errorf("%d bytes: %w", b.Size, errBlockTooLarge)
	}

	b.Payload = make([]byte, b.Size)
	if n, err := io.ReadFull(r, b.Payload); err != nil {
		return nil, fmt.Errorf("%s block %q: %d of %d bytes: %w", b.Type, b.Name, n, b.Size, errTruncatedPayload)
	}

	return b, nil
}

func (ins *Instrument) decode(b *Block) {
	var err error

	switch b.Type {
	case TypeInstrument:
		return
	case TypeZone:
		var z *Zone
		if z, err = decodeZone(b); err == nil {
			z.Index = len(ins.Zones)
			ins.Zones = append(ins.Zones, z)
		}
	case TypeGroup:
		var g *Group
		if g, err = decodeGroup(b); err == nil {
			ins.Groups = append(ins.Groups, g)
		}
	case TypeSample:
		var s *Sample
		if s, err = decodeSample(b); err == nil {
			ins.Samples = append(ins.Samples, s)
		}
	case TypeParams:
		err = ins.Params.decode(b)
	default:
		logrus.Debugf("exs: skipping %s block %q", b.Type, b.Name)
	}

	if err != nil {
		ins.Malformed = append(ins.Malformed, fmt.Errorf("%s block %q: %w", b.Type, b.Name, err))
	}
}

// resolve drops zones whose group or sample index points past the parsed
// records.
func (ins *Instrument) resolve() {
	kept := ins.Zones[:0]

	for _, z := range ins.Zones {
		record := fmt.Sprintf("zone %d (%s)", z.Index, z.Name)

		if z.Group != NoGroup && (z.Group < 0 || z.Group >= len(ins.Groups)) {
			ins.Skipped = append(ins.Skipped, &samplelib.IndexError{Record: record, Field: "group", Index: z.Group, Limit: len(ins.Groups)})
			continue
		}

		if z.Sample < 0 || z.Sample >= len(ins.Samples) {
			ins.Skipped = append(ins.Skipped, &samplelib.IndexError{Record: record, Field: "sample", Index: z.Sample, Limit: len(ins.Samples)})
			continue
		}

		kept = append(kept, z)
	}

	ins.Zones = kept
}

// GroupOf returns the zone's group or nil.
func (ins *Instrument) GroupOf(z *Zone) *Group {
	if z.Group == NoGroup {
		return nil
	}

	return ins.Groups[z.Group]
}

// SampleOf returns the zone's sample.
func (ins *Instrument) SampleOf(z *Zone) *Sample {
	return ins.Samples[z.Sample]
}
