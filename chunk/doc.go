// Package chunk reads and writes RIFF-style hierarchical containers.
//
// A container is a tree of tagged, sized nodes: every chunk starts with a
// 4-byte id and a 4-byte size followed by the payload, padded to an even
// length. LIST (and the root RIFF/RIFX) chunks carry a 4-byte list type and
// nest further chunks.
//
// The byte order is fixed per file when it is opened and never sniffed per
// value. Two layouts are supported:
//
//   - LayoutStandard: a RIFF or RIFX header followed by the form type
//   - LayoutFlat: the file is a plain sequence of chunks (Korg files)
//
// The tree structure is parsed eagerly when the file is opened; payloads are
// read lazily through io.ReaderAt so a File can hand out independent chunk
// cursors.
package chunk
