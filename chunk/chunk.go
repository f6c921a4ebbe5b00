package chunk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// Whence selects the reference point of Chunk.SetPos.
type Whence int

const (
	// Start positions relative to the start of the payload.
	Start Whence = iota
	// Current positions relative to the current position.
	Current
	// End positions relative to the last byte or frame, so offset 0 is the
	// final one.
	End
	// Backward moves backward from the current position.
	Backward
)

// Chunk is one tagged, sized node of a container. Positions are relative to
// the start of the payload.
type Chunk struct {
	file *File
	list *List

	ID     ID
	Size   uint32
	Offset int64

	pos int64
}

// File returns the container owning the chunk.
func (c *Chunk) File() *File {
	if c == nil {
		return nil
	}

	return c.file
}

// IsList reports whether the chunk is a LIST (or the root).
func (c *Chunk) IsList() bool {
	return c != nil && c.list != nil
}

// AsList returns the chunk as a list, or nil for plain chunks.
func (c *Chunk) AsList() *List {
	if c == nil {
		return nil
	}

	return c.list
}

// FileOffset returns the absolute file offset of the chunk header.
func (c *Chunk) FileOffset() int64 {
	return c.Offset - headerSize
}

// Pos returns the current read position.
func (c *Chunk) Pos() int64 {
	return c.pos
}

// Remaining returns the number of payload bytes after the current position.
func (c *Chunk) Remaining() int64 {
	return int64(c.Size) - c.pos
}

// SetPos moves the read position and returns the new absolute payload
// offset. The result is clamped to the payload.
func (c *Chunk) SetPos(offset int64, whence Whence) int64 {
	switch whence {
	case Current:
		c.pos += offset
	case End:
		c.pos = int64(c.Size) - 1 - offset
	case Backward:
		c.pos -= offset
	default:
		c.pos = offset
	}

	if c.pos < 0 {
		c.pos = 0
	}

	if c.pos > int64(c.Size) {
		c.pos = int64(c.Size)
	}

	return c.pos
}

// Read reads up to count units of unitSize bytes into buf and returns the
// number of whole units read. It never reads past the end of the chunk.
// On big endian files each unit is swapped to little endian so decoded PCM
// data always has the same in-memory layout.
func (c *Chunk) Read(buf []byte, count, unitSize int) (int, error) {
	if unitSize <= 0 {
		return 0, errBadUnitSize
	}

	if count <= 0 {
		return 0, nil
	}

	want := int64(count) * int64(unitSize)
	if max := int64(len(buf)) / int64(unitSize) * int64(unitSize); want > max {
		want = max
	}

	if rem := c.Remaining() / int64(unitSize) * int64(unitSize); want > rem {
		want = rem
	}

	if want <= 0 {
		return 0, io.EOF
	}

	n, err := c.file.r.ReadAt(buf[:want], c.Offset+c.pos)
	units := n / unitSize
	c.pos += int64(units * unitSize)

	if c.file.order == binary.BigEndian && unitSize > 1 {
		swapUnits(buf[:units*unitSize], unitSize)
	}

	if err != nil && err != io.EOF {
		return units, fmt.Errorf("failed to read chunk %q: %w", c.ID[:], err)
	}

	if units == 0 {
		return 0, io.EOF
	}

	return units, nil
}

// ReadFull reads exactly len(buf) raw bytes without unit swapping.
func (c *Chunk) ReadFull(buf []byte) error {
	if int64(len(buf)) > c.Remaining() {
		return fmt.Errorf("chunk %q: read of %d bytes at %d: %w", c.ID[:], len(buf), c.pos, io.ErrUnexpectedEOF)
	}

	n, err := c.file.r.ReadAt(buf, c.Offset+c.pos)
	c.pos += int64(n)

	if n < len(buf) {
		return fmt.Errorf("chunk %q: %w", c.ID[:], fileReadErr(err))
	}

	return nil
}

// LoadData returns a copy of the whole payload.
func (c *Chunk) LoadData() ([]byte, error) {
	buf := make([]byte, c.Size)

	n, err := c.file.r.ReadAt(buf, c.Offset)
	if n < len(buf) {
		return nil, fmt.Errorf("failed to load chunk %q: %w", c.ID[:], fileReadErr(err))
	}

	return buf, nil
}

// Section returns an independent reader over the payload.
func (c *Chunk) Section() *io.SectionReader {
	return io.NewSectionReader(c.file.r, c.Offset, int64(c.Size))
}

// Riff returns a go-audio riff.Chunk view over the payload, suitable for
// sequential little endian field decoding with ReadLE.
func (c *Chunk) Riff() *riff.Chunk {
	return &riff.Chunk{
		ID:   c.ID,
		Size: int(c.Size),
		R:    c.Section(),
	}
}

// Fields returns a sticky-error field reader starting at the current
// position. It shares the chunk's read position.
func (c *Chunk) Fields() *FieldReader {
	return &FieldReader{c: c, order: c.file.order}
}

func swapUnits(b []byte, unit int) {
	for i := 0; i+unit <= len(b); i += unit {
		u := b[i : i+unit]
		for l, r := 0, unit-1; l < r; l, r = l+1, r-1 {
			u[l], u[r] = u[r], u[l]
		}
	}
}

// List is a chunk that contains further chunks.
type List struct {
	*Chunk

	Type ID

	subchunks []*Chunk
	sublists  []*List

	chunkCursor int
	listCursor  int
}

// Subchunks returns all children in file order, lists included.
func (l *List) Subchunks() []*Chunk {
	if l == nil {
		return nil
	}

	return l.subchunks
}

// Sublists returns all LIST children in file order.
func (l *List) Sublists() []*List {
	if l == nil {
		return nil
	}

	return l.sublists
}

// Subchunk returns the first child with the given id, or nil.
func (l *List) Subchunk(id ID) *Chunk {
	if l == nil {
		return nil
	}

	for _, c := range l.subchunks {
		if c.ID == id {
			return c
		}
	}

	return nil
}

// FirstSubchunk resets the child cursor and returns the first child.
func (l *List) FirstSubchunk() *Chunk {
	if l == nil {
		return nil
	}

	l.chunkCursor = 0

	return l.NextSubchunk()
}

// NextSubchunk advances the child cursor.
func (l *List) NextSubchunk() *Chunk {
	if l == nil || l.chunkCursor >= len(l.subchunks) {
		return nil
	}

	c := l.subchunks[l.chunkCursor]
	l.chunkCursor++

	return c
}

// CountSubchunks counts the children with the given id.
func (l *List) CountSubchunks(id ID) int {
	if l == nil {
		return 0
	}

	n := 0

	for _, c := range l.subchunks {
		if c.ID == id {
			n++
		}
	}

	return n
}

// Sublist returns the first LIST child of the given list type, or nil.
func (l *List) Sublist(listType ID) *List {
	if l == nil {
		return nil
	}

	for _, s := range l.sublists {
		if s.Type == listType {
			return s
		}
	}

	return nil
}

// FirstSublist resets the list cursor and returns the first LIST child.
func (l *List) FirstSublist() *List {
	if l == nil {
		return nil
	}

	l.listCursor = 0

	return l.NextSublist()
}

// NextSublist advances the list cursor.
func (l *List) NextSublist() *List {
	if l == nil || l.listCursor >= len(l.sublists) {
		return nil
	}

	s := l.sublists[l.listCursor]
	l.listCursor++

	return s
}

// CountSublists counts the LIST children of the given type.
func (l *List) CountSublists(listType ID) int {
	if l == nil {
		return 0
	}

	n := 0

	for _, s := range l.sublists {
		if s.Type == listType {
			n++
		}
	}

	return n
}

// ListsOfType returns all LIST children of the given type in file order.
func (l *List) ListsOfType(listType ID) []*List {
	if l == nil {
		return nil
	}

	var out []*List

	for _, s := range l.sublists {
		if s.Type == listType {
			out = append(out, s)
		}
	}

	return out
}

// ChunksOfType returns all children with the given id in file order.
func (l *List) ChunksOfType(id ID) []*Chunk {
	if l == nil {
		return nil
	}

	var out []*Chunk

	for _, c := range l.subchunks {
		if c.ID == id {
			out = append(out, c)
		}
	}

	return out
}
