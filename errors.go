package samplelib

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks a malformed or unsupported container. It is fatal to
	// the single open operation that produced it.
	ErrFormat = errors.New("format error")
	// ErrIndex marks a record that references an out-of-range group, sample
	// or dimension. Only the offending record is skipped.
	ErrIndex = errors.New("index out of range")
	// ErrMissingResource marks a referenced file that could not be found.
	ErrMissingResource = errors.New("missing resource")
	// ErrIntegrity marks a checksum mismatch.
	ErrIntegrity = errors.New("integrity check failed")
)

// FormatError reports bad magic, undersized chunks or a premature EOF.
type FormatError struct {
	Format string
	Path   string
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Format + ": " + e.Reason
	if e.Path != "" {
		msg = e.Format + ": " + e.Path + ": " + e.Reason
	}

	if e.Offset > 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}

	return []error{ErrFormat, e.Err}
}

// NewFormatError returns a FormatError for the named format.
func NewFormatError(format, reason string, err error) *FormatError {
	return &FormatError{Format: format, Reason: reason, Err: err}
}

// IndexError reports a record referencing something outside its valid range.
type IndexError struct {
	Record string
	Field  string
	Index  int
	Limit  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s index %d out of range [0,%d)", e.Record, e.Field, e.Index, e.Limit)
}

func (e *IndexError) Unwrap() error {
	return ErrIndex
}

// MissingResourceError reports a referenced file that does not exist.
type MissingResourceError struct {
	Path string
	Err  error
}

func (e *MissingResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing resource %q: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("missing resource %q", e.Path)
}

func (e *MissingResourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMissingResource}
	}

	return []error{ErrMissingResource, e.Err}
}

// IntegrityError reports a stored checksum that does not match the data.
type IntegrityError struct {
	What     string
	Expected uint32
	Actual   uint32
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: stored %08x, computed %08x", e.What, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}
