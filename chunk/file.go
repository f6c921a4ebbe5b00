package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Layout selects how the top level of a container is organised.
type Layout int

const (
	// LayoutStandard is a RIFF/RIFX header followed by a form type.
	LayoutStandard Layout = iota
	// LayoutFlat is a bare sequence of chunks without a root header.
	LayoutFlat
)

const (
	headerSize = 8
	maxDepth   = 32
	maxChunks  = 1 << 20
)

// Options configures how a container is opened.
type Options struct {
	// ByteOrder fixes the byte order of every size and value in the file.
	// When nil, a standard layout picks it from the magic (RIFF little
	// endian, RIFX big endian) and a flat layout defaults to little endian.
	ByteOrder binary.ByteOrder
	// Layout selects a standard RIFF tree or a flat chunk sequence.
	Layout Layout
	// FormType is the expected form type (standard layout) or the id of the
	// first chunk (flat layout). The zero value accepts anything.
	FormType ID
	// Writable opens the file for in-place patching through WriteAt.
	Writable bool
}

// File is an open chunk container.
type File struct {
	r      io.ReaderAt
	closer io.Closer
	size   int64
	path   string
	order  binary.ByteOrder
	layout Layout
	root   *List
	nodes  int
}

// Open opens the container at path.
func Open(path string, opts Options) (*File, error) {
	flag := os.O_RDONLY
	if opts.Writable {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	file, err := newFile(f, info.Size(), path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}

	file.closer = f

	return file, nil
}

// New parses a container of the given size from r.
func New(r io.ReaderAt, size int64, opts Options) (*File, error) {
	return newFile(r, size, "", opts)
}

func newFile(r io.ReaderAt, size int64, path string, opts Options) (*File, error) {
	f := &File{
		r:      r,
		size:   size,
		path:   path,
		order:  opts.ByteOrder,
		layout: opts.Layout,
	}

	var err error
	if opts.Layout == LayoutFlat {
		err = f.parseFlat(opts.FormType)
	} else {
		err = f.parseStandard(opts.FormType)
	}

	if err != nil {
		return nil, err
	}

	return f, nil
}

// Close releases the underlying file when the container was opened by path.
func (f *File) Close() error {
	if f == nil || f.closer == nil {
		return nil
	}

	err := f.closer.Close()
	f.closer = nil

	return err
}

// Root returns the top level list.
func (f *File) Root() *List {
	if f == nil {
		return nil
	}

	return f.root
}

// Path returns the file name the container was opened from, if any.
func (f *File) Path() string {
	if f == nil {
		return ""
	}

	return f.path
}

// Size returns the container size in bytes.
func (f *File) Size() int64 {
	if f == nil {
		return 0
	}

	return f.size
}

// ByteOrder returns the byte order fixed for this file.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.order
}

// ReaderAt exposes the underlying reader.
func (f *File) ReaderAt() io.ReaderAt {
	return f.r
}

// WriteAt patches bytes in place when the underlying reader is writable.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	w, ok := f.r.(io.WriterAt)
	if !ok {
		return 0, fmt.Errorf("%w: container is read-only", os.ErrPermission)
	}

	return w.WriteAt(p, off)
}

func (f *File) parseStandard(formType ID) error {
	var hdr [12]byte

	n, err := f.r.ReadAt(hdr[:], 0)
	if n < len(hdr) {
		return formatError(f, 0, "file too small for a RIFF header", fileReadErr(err))
	}

	var magic ID
	copy(magic[:], hdr[:4])

	switch magic {
	case IDRiff:
		if f.order == nil {
			f.order = binary.LittleEndian
		}
	case IDRifx:
		if f.order == nil {
			f.order = binary.BigEndian
		}
	default:
		return formatError(f, 0, fmt.Sprintf("%q is not a RIFF container", magic[:]), errBadMagic)
	}

	size := f.order.Uint32(hdr[4:8])
	if int64(size)+headerSize > f.size {
		return formatError(f, 4, fmt.Sprintf("declared size %d exceeds file size %d", size, f.size), errChunkOverflow)
	}

	if size < 4 {
		return formatError(f, 4, "root chunk too small for a form type", errShortHeader)
	}

	var form ID
	copy(form[:], hdr[8:12])

	if formType != (ID{}) && form != formType {
		return formatError(f, 8, fmt.Sprintf("form type %q, expected %q", form[:], formType[:]), errBadFormType)
	}

	f.root = &List{
		Chunk: &Chunk{file: f, ID: magic, Size: size, Offset: headerSize},
		Type:  form,
	}
	f.root.Chunk.list = f.root

	return f.parseChildren(f.root, headerSize+4, headerSize+int64(size), 0, true)
}

func (f *File) parseFlat(first ID) error {
	if f.order == nil {
		f.order = binary.LittleEndian
	}

	f.root = &List{
		Chunk: &Chunk{file: f, Size: uint32(min(f.size, int64(^uint32(0)))), Offset: 0},
	}
	f.root.Chunk.list = f.root

	if err := f.parseChildren(f.root, 0, f.size, 0, false); err != nil {
		return err
	}

	if len(f.root.subchunks) == 0 {
		return formatError(f, 0, "empty container", errShortHeader)
	}

	if first != (ID{}) && f.root.subchunks[0].ID != first {
		got := f.root.subchunks[0].ID
		return formatError(f, 0, fmt.Sprintf("first chunk %q, expected %q", got[:], first[:]), errBadMagic)
	}

	return nil
}

func (f *File) parseChildren(parent *List, start, end int64, depth int, nested bool) error {
	if depth > maxDepth {
		return formatError(f, start, "nesting limit reached", errTooDeep)
	}

	var hdr [headerSize]byte

	pos := start
	for pos < end {
		if end-pos < headerSize {
			// trailing pad or junk shorter than a header
			break
		}

		n, err := f.r.ReadAt(hdr[:], pos)
		if n < headerSize {
			return formatError(f, pos, "premature end of file in chunk header", fileReadErr(err))
		}

		var id ID
		copy(id[:], hdr[:4])
		size := f.order.Uint32(hdr[4:8])

		payload := pos + headerSize
		if payload+int64(size) > end {
			return formatError(f, pos, fmt.Sprintf("chunk %q of size %d exceeds its parent", id[:], size), errChunkOverflow)
		}

		f.nodes++
		if f.nodes > maxChunks {
			return formatError(f, pos, "chunk count limit reached", errTooManyChunks)
		}

		ck := &Chunk{file: f, ID: id, Size: size, Offset: payload}
		parent.subchunks = append(parent.subchunks, ck)

		if nested && id == IDList && size >= 4 {
			var lt [4]byte
			if _, err := f.r.ReadAt(lt[:], payload); err != nil {
				return formatError(f, payload, "failed to read list type", err)
			}

			lst := &List{Chunk: ck, Type: lt}
			ck.list = lst
			parent.sublists = append(parent.sublists, lst)

			err := f.parseChildren(lst, payload+4, payload+int64(size), depth+1, true)
			if err != nil {
				return err
			}
		}

		pos = payload + int64(size)
		if size%2 == 1 {
			pos++
		}
	}

	return nil
}

func fileReadErr(err error) error {
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}

	return err
}
