package chunk

import (
	"errors"

	"github.com/cwbudde/samplelib"
)

var (
	// ErrChunkNotFound is returned when a required chunk is absent.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrNotList is returned when a list operation targets a plain chunk.
	ErrNotList = errors.New("chunk is not a list")

	errNilFile        = errors.New("nil file")
	errShortHeader    = errors.New("short chunk header")
	errBadMagic       = errors.New("bad magic")
	errBadFormType    = errors.New("unexpected form type")
	errChunkOverflow  = errors.New("chunk exceeds its parent")
	errTooDeep        = errors.New("chunk tree nested too deep")
	errTooManyChunks  = errors.New("too many chunks")
	errBadUnitSize    = errors.New("unit size must be positive")
	errWriterClosed   = errors.New("writer closed")
	errNoOpenList     = errors.New("no open list")
	errChunkTooLarge  = errors.New("chunk payload larger than 4GiB")
	errNegativeOffset = errors.New("negative offset")
)

func formatError(f *File, offset int64, reason string, err error) error {
	fe := &samplelib.FormatError{Format: "riff", Offset: offset, Reason: reason, Err: err}
	if f != nil {
		fe.Path = f.path
	}

	return fe
}
