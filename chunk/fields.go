package chunk

import (
	"encoding/binary"
	"io"
)

// Uint8 reads one byte at the current position.
func (c *Chunk) Uint8() (uint8, error) {
	var b [1]byte
	if err := c.ReadFull(b[:]); err != nil {
		return 0, err
	}

	return b[0], nil
}

// Int8 reads one signed byte.
func (c *Chunk) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

// Uint16 reads a 16-bit value in the file's byte order.
func (c *Chunk) Uint16() (uint16, error) {
	var b [2]byte
	if err := c.ReadFull(b[:]); err != nil {
		return 0, err
	}

	return c.file.order.Uint16(b[:]), nil
}

// Int16 reads a signed 16-bit value in the file's byte order.
func (c *Chunk) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

// Uint32 reads a 32-bit value in the file's byte order.
func (c *Chunk) Uint32() (uint32, error) {
	var b [4]byte
	if err := c.ReadFull(b[:]); err != nil {
		return 0, err
	}

	return c.file.order.Uint32(b[:]), nil
}

// Int32 reads a signed 32-bit value in the file's byte order.
func (c *Chunk) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

// Uint64 reads a 64-bit value in the file's byte order.
func (c *Chunk) Uint64() (uint64, error) {
	var b [8]byte
	if err := c.ReadFull(b[:]); err != nil {
		return 0, err
	}

	return c.file.order.Uint64(b[:]), nil
}

// ReadString reads a fixed size field of n bytes and cuts it at the first
// NUL.
func (c *Chunk) ReadString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}

	b := make([]byte, n)
	if err := c.ReadFull(b); err != nil {
		return "", err
	}

	return nullTermStr(b), nil
}

// FieldReader decodes a run of fixed fields from a chunk. The first error
// sticks: later reads return zero values and Err reports it.
type FieldReader struct {
	c     *Chunk
	order binary.ByteOrder
	err   error
}

// Err returns the first error encountered.
func (r *FieldReader) Err() error {
	return r.err
}

// Pos returns the position within the chunk payload.
func (r *FieldReader) Pos() int64 {
	return r.c.pos
}

// Remaining returns the number of bytes left in the chunk.
func (r *FieldReader) Remaining() int64 {
	return r.c.Remaining()
}

// Has reports whether n more bytes are available and no error occurred.
func (r *FieldReader) Has(n int) bool {
	return r.err == nil && r.c.Remaining() >= int64(n)
}

func (r *FieldReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}

	b := make([]byte, n)
	if err := r.c.ReadFull(b); err != nil {
		r.err = err
		return nil
	}

	return b
}

// Skip advances n bytes.
func (r *FieldReader) Skip(n int) {
	if r.err != nil {
		return
	}

	if int64(n) > r.c.Remaining() {
		r.err = io.ErrUnexpectedEOF
		return
	}

	r.c.pos += int64(n)
}

// Seek moves to an absolute payload offset.
func (r *FieldReader) Seek(off int64) {
	if r.err != nil {
		return
	}

	if off < 0 {
		r.err = errNegativeOffset
		return
	}

	if off > int64(r.c.Size) {
		r.err = io.ErrUnexpectedEOF
		return
	}

	r.c.pos = off
}

func (r *FieldReader) Uint8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *FieldReader) Int8() int8 {
	return int8(r.Uint8())
}

func (r *FieldReader) Uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}

	return r.order.Uint16(b)
}

func (r *FieldReader) Int16() int16 {
	return int16(r.Uint16())
}

func (r *FieldReader) Uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}

	return r.order.Uint32(b)
}

func (r *FieldReader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *FieldReader) Uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}

	return r.order.Uint64(b)
}

// String reads an n byte, NUL padded string.
func (r *FieldReader) String(n int) string {
	b := r.bytes(n)
	if b == nil {
		return ""
	}

	return nullTermStr(b)
}

// Bytes reads n raw bytes.
func (r *FieldReader) Bytes(n int) []byte {
	return r.bytes(n)
}
