package exs

import (
	"encoding/binary"
	"fmt"
)

// Cursor decodes the fixed size fields of a block payload in the block's
// byte order. The first read past the end sets a sticky error; every later
// read returns zero values.
type Cursor struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

// NewCursor returns a cursor over data.
func NewCursor(data []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{data: data, order: order}
}

// Err returns the first bounds error.
func (c *Cursor) Err() error {
	return c.err
}

// Pos returns the offset of the next read.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

func (c *Cursor) next(n int) []byte {
	if c.err != nil {
		return nil
	}

	if n < 0 || n > c.Remaining() {
		c.err = fmt.Errorf("read of %d bytes at %d of %d: %w", n, c.pos, len(c.data), errOutOfBounds)
		return nil
	}

	b := c.data[c.pos : c.pos+n]
	c.pos += n

	return b
}

// Seek moves to an absolute offset.
func (c *Cursor) Seek(off int) {
	if c.err != nil {
		return
	}

	if off < 0 || off > len(c.data) {
		c.err = fmt.Errorf("seek to %d of %d: %w", off, len(c.data), errOutOfBounds)
		return
	}

	c.pos = off
}

// Skip advances by n bytes.
func (c *Cursor) Skip(n int) {
	c.next(n)
}

func (c *Cursor) Byte() uint8 {
	b := c.next(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (c *Cursor) Int8() int8 {
	return int8(c.Byte())
}

func (c *Cursor) Uint16() uint16 {
	b := c.next(2)
	if b == nil {
		return 0
	}

	return c.order.Uint16(b)
}

func (c *Cursor) Int16() int16 {
	return int16(c.Uint16())
}

func (c *Cursor) Uint32() uint32 {
	b := c.next(4)
	if b == nil {
		return 0
	}

	return c.order.Uint32(b)
}

func (c *Cursor) Int32() int32 {
	return int32(c.Uint32())
}

// String reads an n byte NUL padded string.
func (c *Cursor) String(n int) string {
	b := c.next(n)
	if b == nil {
		return ""
	}

	return cString(b)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}
