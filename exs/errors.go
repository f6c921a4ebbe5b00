package exs

import (
	"errors"

	"github.com/cwbudde/samplelib"
)

var (
	errOutOfBounds      = errors.New("read past end of block")
	errTruncatedHeader  = errors.New("truncated block header")
	errTruncatedPayload = errors.New("truncated block payload")
	errVersion          = errors.New("unsupported block version")
	errBlockTooLarge    = errors.New("block too large")
	errNotInstrument    = errors.New("stream does not start with an instrument block")
	errBadMagic         = errors.New("bad block magic")
	errEmpty            = errors.New("empty stream")
)

func formatError(path, reason string, err error) error {
	fe := samplelib.NewFormatError("exs", reason, err)
	fe.Path = path

	return fe
}
