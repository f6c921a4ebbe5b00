// Package samplelib imports third-party sample-library containers and manages
// the decoded samples they reference.
//
// The module is split into small packages, leaf to root:
//
//   - chunk: RIFF-style hierarchical (and flat) chunk reader and writer
//   - pcm: frame based decode buffers with silence padding
//   - gig: Gigasampler/GigaStudio model with compressed sample decode
//   - korg: Korg KSF sample and KMP multisample reader
//   - exs: EXS24 block stream parser
//   - samples: the Sample Manager (identity, deduplication, purge, monoliths)
//   - importer: maps containers to zones attached to the Sample Manager
//
// This root package only holds the error taxonomy shared by all of them, so
// callers can classify failures with errors.Is and errors.As regardless of
// the format that produced them.
package samplelib
