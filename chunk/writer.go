package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Node is an in-memory chunk tree used for encoding. A node with a non zero
// ListType is written as a LIST (or the root) wrapping its Children;
// otherwise Data is its payload.
type Node struct {
	ID       ID
	ListType ID
	Data     []byte
	Children []Node
}

// Size returns the payload size of n, without its own header or padding.
func (n Node) Size() int64 {
	if n.ListType == (ID{}) {
		return int64(len(n.Data))
	}

	size := int64(4)
	for _, c := range n.Children {
		size += headerSize + c.Size() + c.Size()%2
	}

	return size
}

// AppendNode appends the encoding of n to dst.
func AppendNode(dst []byte, order binary.ByteOrder, n Node) []byte {
	size := n.Size()

	dst = append(dst, n.ID[:]...)
	dst = order.AppendUint32(dst, uint32(size))

	if n.ListType == (ID{}) {
		dst = append(dst, n.Data...)
	} else {
		dst = append(dst, n.ListType[:]...)
		for _, c := range n.Children {
			dst = AppendNode(dst, order, c)
		}
	}

	if size%2 == 1 {
		dst = append(dst, 0)
	}

	return dst
}

// Writer streams a chunk tree to a seekable writer. List sizes are patched
// when the list is ended.
type Writer struct {
	w     io.WriteSeeker
	order binary.ByteOrder

	written int64
	open    []int64
	closed  bool
}

// NewWriter returns a writer using the given byte order for every size.
func NewWriter(w io.WriteSeeker, order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}

	return &Writer{w: w, order: order}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) write(b []byte) error {
	if w.closed {
		return errWriterClosed
	}

	n, err := w.w.Write(b)
	w.written += int64(n)

	if err != nil {
		return fmt.Errorf("failed to write chunk data: %w", err)
	}

	return nil
}

func (w *Writer) begin(id, listType ID) error {
	var hdr [12]byte

	copy(hdr[:4], id[:])
	copy(hdr[8:], listType[:])

	w.open = append(w.open, w.written+4)

	return w.write(hdr[:])
}

// BeginRIFF opens the root chunk. Big endian writers emit RIFX.
func (w *Writer) BeginRIFF(form ID) error {
	id := IDRiff
	if w.order == binary.BigEndian {
		id = IDRifx
	}

	return w.begin(id, form)
}

// BeginList opens a LIST of the given type.
func (w *Writer) BeginList(listType ID) error {
	return w.begin(IDList, listType)
}

// WriteChunk writes a complete chunk and its pad byte.
func (w *Writer) WriteChunk(id ID, data []byte) error {
	if int64(len(data)) > math.MaxUint32 {
		return errChunkTooLarge
	}

	var hdr [headerSize]byte

	copy(hdr[:4], id[:])
	w.order.PutUint32(hdr[4:], uint32(len(data)))

	if err := w.write(hdr[:]); err != nil {
		return err
	}

	if err := w.write(data); err != nil {
		return err
	}

	if len(data)%2 == 1 {
		return w.write([]byte{0})
	}

	return nil
}

// WriteNode writes a whole in-memory subtree.
func (w *Writer) WriteNode(n Node) error {
	return w.write(AppendNode(nil, w.order, n))
}

// EndList closes the innermost open list and patches its size.
func (w *Writer) EndList() error {
	if len(w.open) == 0 {
		return errNoOpenList
	}

	sizePos := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]

	size := w.written - sizePos - 4
	if size > math.MaxUint32 {
		return errChunkTooLarge
	}

	// go back and write the list size
	if _, err := w.w.Seek(sizePos, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to list size position: %w", err)
	}

	var b [4]byte
	w.order.PutUint32(b[:], uint32(size))

	if _, err := w.w.Write(b[:]); err != nil {
		return fmt.Errorf("failed to patch list size: %w", err)
	}

	// jump back to the end of the file.
	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if size%2 == 1 {
		return w.write([]byte{0})
	}

	return nil
}

// Close ends every open list. The underlying writer is synced but not
// closed.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return nil
	}

	for len(w.open) > 0 {
		if err := w.EndList(); err != nil {
			return err
		}
	}

	w.closed = true

	if f, ok := w.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}
