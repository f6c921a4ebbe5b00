// Package samples is the Sample Manager: it gives every decoded sample a
// stable identity, deduplicates loads, counts zone holders, purges unused
// samples and substitutes monoliths or placeholders for moved files.
package samples

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// SourceType names the container a sample was loaded from.
type SourceType string

const (
	SourceWAV          SourceType = "wav"
	SourceFLAC         SourceType = "flac"
	SourceMP3          SourceType = "mp3"
	SourceAIFF         SourceType = "aiff"
	SourceOGG          SourceType = "ogg"
	SourceSF2          SourceType = "sf2"
	SourceGIG          SourceType = "gig"
	SourceMultisample  SourceType = "multisample"
	SourceSCXTMonolith SourceType = "scxt-monolith"
	SourceSFZ          SourceType = "sfz"
	SourceKSF          SourceType = "ksf"
)

var extensionTypes = map[string]SourceType{
	".wav":  SourceWAV,
	".flac": SourceFLAC,
	".mp3":  SourceMP3,
	".aif":  SourceAIFF,
	".aiff": SourceAIFF,
	".ogg":  SourceOGG,
	".sf2":  SourceSF2,
	".gig":  SourceGIG,
	".ksf":  SourceKSF,
	".scxm": SourceSCXTMonolith,
}

// SourceTypeOf returns the source type for a file extension.
func SourceTypeOf(path string) (SourceType, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// Address is the persisted location of a sample. Preset, Instrument and
// Region are -1 for single sample files.
type Address struct {
	Type       SourceType `msgpack:"type" yaml:"type"`
	Path       string     `msgpack:"path" yaml:"path"`
	MD5        string     `msgpack:"md5,omitempty" yaml:"md5,omitempty"`
	Preset     int        `msgpack:"preset" yaml:"preset"`
	Instrument int        `msgpack:"instrument" yaml:"instrument"`
	Region     int        `msgpack:"region" yaml:"region"`
}

// FileAddress returns the address of a single sample file.
func FileAddress(t SourceType, path string) Address {
	return Address{Type: t, Path: path, Preset: -1, Instrument: -1, Region: -1}
}

// Key identifies the address in monolith tables: the path, followed by the
// container position when there is one.
func (a Address) Key() string {
	if a.Preset < 0 && a.Instrument < 0 && a.Region < 0 {
		return a.Path
	}

	return fmt.Sprintf("%s#%d/%d/%d", a.Path, a.Preset, a.Instrument, a.Region)
}

func (a Address) samePosition(b Address) bool {
	return a.Type == b.Type && a.Path == b.Path &&
		a.Preset == b.Preset && a.Instrument == b.Instrument && a.Region == b.Region
}

// SampleID is the manager's identity of one decoded sample. Equality
// covers the content hash and the container position; PathHint is only
// informational.
type SampleID struct {
	MD5        string `msgpack:"md5" yaml:"md5"`
	Preset     int    `msgpack:"preset" yaml:"preset"`
	Instrument int    `msgpack:"instrument" yaml:"instrument"`
	Region     int    `msgpack:"region" yaml:"region"`
	PathHint   string `msgpack:"path_hint,omitempty" yaml:"path_hint,omitempty"`
}

// FromAddress derives the identity of the sample at addr.
func FromAddress(addr Address) SampleID {
	return SampleID{
		MD5:        addr.MD5,
		Preset:     addr.Preset,
		Instrument: addr.Instrument,
		Region:     addr.Region,
		PathHint:   addr.Path,
	}
}

type idKey struct {
	md5                        string
	preset, instrument, region int
}

func (id SampleID) key() idKey {
	return idKey{id.MD5, id.Preset, id.Instrument, id.Region}
}

// Equal compares identities ignoring the path hint.
func (id SampleID) Equal(o SampleID) bool {
	return id.key() == o.key()
}

// IsZero reports whether id is unset.
func (id SampleID) IsZero() bool {
	return id.MD5 == ""
}

func (id SampleID) String() string {
	s := id.MD5
	if id.Preset >= 0 || id.Instrument >= 0 || id.Region >= 0 {
		s += fmt.Sprintf("/%d/%d/%d", id.Preset, id.Instrument, id.Region)
	}

	if id.PathHint != "" {
		s += " (" + filepath.Base(id.PathHint) + ")"
	}

	return s
}

// AddressRecord pairs an identity with the address it was loaded from.
type AddressRecord struct {
	ID      SampleID `msgpack:"id" yaml:"id"`
	Address Address  `msgpack:"address" yaml:"address"`
}

// EncodeAddresses writes records as msgpack.
func EncodeAddresses(w io.Writer, records []AddressRecord) error {
	if err := msgpack.NewEncoder(w).Encode(records); err != nil {
		return fmt.Errorf("failed to encode sample addresses: %w", err)
	}

	return nil
}

// DecodeAddresses reads records written by EncodeAddresses.
func DecodeAddresses(r io.Reader) ([]AddressRecord, error) {
	var records []AddressRecord
	if err := msgpack.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode sample addresses: %w", err)
	}

	return records, nil
}

// RelativizeAddresses replaces the root prefix of every path below root
// with marker.
func RelativizeAddresses(records []AddressRecord, root, marker string) []AddressRecord {
	out := make([]AddressRecord, len(records))

	for i, r := range records {
		if rel, ok := underRoot(r.Address.Path, root); ok {
			r.Address.Path = marker + rel
		}

		out[i] = r
	}

	return out
}

// underRoot returns the part of path after root when path is root itself or
// lies below it. A sibling sharing the prefix, like /a/bc for /a/b, is not
// below root.
func underRoot(path, root string) (string, bool) {
	if root == "" {
		return "", false
	}

	if len(root) > 1 && os.IsPathSeparator(root[len(root)-1]) {
		root = root[:len(root)-1]
	}

	rel, ok := strings.CutPrefix(path, root)
	if !ok {
		return "", false
	}

	if rel == "" || os.IsPathSeparator(rel[0]) || os.IsPathSeparator(root[len(root)-1]) {
		return rel, true
	}

	return "", false
}

// resolveMarker replaces a leading marker by root.
func resolveMarker(path, root, marker string) string {
	if marker == "" {
		return path
	}

	if rest, ok := strings.CutPrefix(path, marker); ok {
		return root + rest
	}

	return path
}
