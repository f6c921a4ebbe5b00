package korg

import (
	"errors"

	"github.com/cwbudde/samplelib"
)

var (
	// ErrCompressed is returned when reading a compressed KSF sample.
	ErrCompressed = errors.New("compressed korg samples are not supported")

	errShortChunk = errors.New("chunk too small")
	errBadFormat  = errors.New("unsupported sample format")
)

func formatError(path, reason string, err error) error {
	fe := samplelib.NewFormatError("korg", reason, err)
	fe.Path = path

	return fe
}
