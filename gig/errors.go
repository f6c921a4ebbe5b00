package gig

import (
	"errors"

	"github.com/cwbudde/samplelib"
)

var (
	// ErrNoSample is returned when a dimension region has no sample.
	ErrNoSample = errors.New("no sample")
	// ErrDimension is returned when a dimension cannot be added or removed.
	ErrDimension = errors.New("invalid dimension")

	errCompressionMode  = errors.New("unknown compression mode")
	errNoDataChunk      = errors.New("wave list has no data chunk")
	errNoFmtChunk       = errors.New("wave list has no fmt chunk")
	errBadFrameTable    = errors.New("compressed sample has no frames")
	errNoDimRegions     = errors.New("region has no dimension regions")
	errChecksumTable    = errors.New("checksum table missing or malformed")
	errSampleIndex      = errors.New("sample index out of range")
	errUnreadableSample = errors.New("sample could not be read")
	errSmallBuffer      = errors.New("decompression buffer too small")
)

func formatError(path, reason string, err error) error {
	fe := samplelib.NewFormatError("gig", reason, err)
	fe.Path = path

	return fe
}
