// Package chunktest builds chunk containers in memory for tests.
package chunktest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/samplelib/chunk"
)

// Chunk returns a plain chunk whose payload is the concatenation of parts.
func Chunk(id string, parts ...[]byte) chunk.Node {
	var data []byte
	for _, p := range parts {
		data = append(data, p...)
	}

	return chunk.Node{ID: chunk.MakeID(id), Data: data}
}

// List returns a LIST node of the given type.
func List(listType string, children ...chunk.Node) chunk.Node {
	return chunk.Node{ID: chunk.IDList, ListType: chunk.MakeID(listType), Children: children}
}

// RIFF encodes a little endian RIFF file of the given form.
func RIFF(form string, children ...chunk.Node) []byte {
	root := chunk.Node{ID: chunk.IDRiff, ListType: chunk.MakeID(form), Children: children}
	return chunk.AppendNode(nil, binary.LittleEndian, root)
}

// RIFX encodes a big endian RIFX file of the given form.
func RIFX(form string, children ...chunk.Node) []byte {
	root := chunk.Node{ID: chunk.IDRifx, ListType: chunk.MakeID(form), Children: children}
	return chunk.AppendNode(nil, binary.BigEndian, root)
}

// Flat encodes a bare chunk sequence.
func Flat(order binary.ByteOrder, children ...chunk.Node) []byte {
	var out []byte
	for _, c := range children {
		out = chunk.AppendNode(out, order, c)
	}

	return out
}

// WriteFile stores data under dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	return path
}

// Buf appends fixed size fields in one byte order.
type Buf struct {
	order binary.ByteOrder
	b     []byte
}

// LE returns a little endian field builder.
func LE() *Buf { return &Buf{order: binary.LittleEndian} }

// BE returns a big endian field builder.
func BE() *Buf { return &Buf{order: binary.BigEndian} }

func (b *Buf) U8(v uint8) *Buf {
	b.b = append(b.b, v)
	return b
}

func (b *Buf) S8(v int8) *Buf {
	return b.U8(uint8(v))
}

func (b *Buf) U16(v uint16) *Buf {
	b.b = b.order.AppendUint16(b.b, v)
	return b
}

func (b *Buf) S16(v int16) *Buf {
	return b.U16(uint16(v))
}

func (b *Buf) U32(v uint32) *Buf {
	b.b = b.order.AppendUint32(b.b, v)
	return b
}

func (b *Buf) S32(v int32) *Buf {
	return b.U32(uint32(v))
}

func (b *Buf) U64(v uint64) *Buf {
	b.b = b.order.AppendUint64(b.b, v)
	return b
}

// Str writes s NUL padded (or truncated) to n bytes.
func (b *Buf) Str(s string, n int) *Buf {
	field := make([]byte, n)
	copy(field, s)
	b.b = append(b.b, field...)

	return b
}

// Raw appends raw bytes.
func (b *Buf) Raw(p ...byte) *Buf {
	b.b = append(b.b, p...)
	return b
}

// Zero appends n zero bytes.
func (b *Buf) Zero(n int) *Buf {
	b.b = append(b.b, make([]byte, n)...)
	return b
}

// Bytes returns the built bytes.
func (b *Buf) Bytes() []byte {
	return b.b
}

// Len returns the number of bytes built so far.
func (b *Buf) Len() int {
	return len(b.b)
}
