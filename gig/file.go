package gig

import (
	"fmt"
	"io"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/sirupsen/logrus"
)

// Version is the container version from the vers chunk.
type Version struct {
	Major   uint16
	Minor   uint16
	Release uint16
	Build   uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Release, v.Build)
}

// Options configures how a gig file is opened.
type Options struct {
	// Tables is the response table context dimension regions bind to.
	// DefaultTables is used when nil.
	Tables *Tables
	// Writable opens the file so the checksum table can be patched in place.
	Writable bool
}

// File is an open Gigasampler/GigaStudio container. Every entity is owned by
// the file and refers to others by index.
type File struct {
	cf     *chunk.File
	tables *Tables

	Version Version
	Info    *chunk.Info

	// Samples holds one entry per wave list in pool order, nil where the
	// wave could not be read.
	Samples      []*Sample
	Instruments  []*Instrument
	Groups       []*Group
	Scripts      []*Script
	ScriptGroups []*ScriptGroup

	// DeclaredInstruments is the instrument count of the colh chunk.
	DeclaredInstruments int

	// Skipped collects records that were dropped while parsing.
	Skipped []error

	poolTable  []int64
	poolSample map[int64]int

	crcChunk   *chunk.Chunk
	crcMarkers []uint32
	checksums  []uint32
}

// Open opens and parses the gig file at path.
func Open(path string, opts Options) (*File, error) {
	cf, err := chunk.Open(path, chunk.Options{FormType: formDLS, Writable: opts.Writable})
	if err != nil {
		return nil, err
	}

	f, err := parse(cf, opts)
	if err != nil {
		cf.Close()
		return nil, err
	}

	return f, nil
}

// Decode parses a gig container of the given size from r.
func Decode(r io.ReaderAt, size int64, opts Options) (*File, error) {
	cf, err := chunk.New(r, size, chunk.Options{FormType: formDLS})
	if err != nil {
		return nil, err
	}

	return parse(cf, opts)
}

func parse(cf *chunk.File, opts Options) (*File, error) {
	f := &File{cf: cf, tables: opts.Tables}
	if f.tables == nil {
		f.tables = DefaultTables()
	}

	root := cf.Root()
	f.Info = chunk.ReadInfo(root)

	if ck := root.Subchunk(ckVers); ck != nil {
		fr := ck.Fields()
		ms := fr.Uint32()
		ls := fr.Uint32()

		if fr.Err() != nil {
			return nil, formatError(cf.Path(), "vers chunk", fr.Err())
		}

		f.Version = Version{
			Major:   uint16(ms >> 16),
			Minor:   uint16(ms),
			Release: uint16(ls >> 16),
			Build:   uint16(ls),
		}
	}

	if ck := root.Subchunk(ckColh); ck != nil {
		n, err := ck.Uint32()
		if err != nil {
			return nil, formatError(cf.Path(), "colh chunk", err)
		}

		f.DeclaredInstruments = int(n)
	}

	if ck := root.Subchunk(ckPtbl); ck != nil {
		if err := f.readPoolTable(ck); err != nil {
			return nil, formatError(cf.Path(), "ptbl chunk", err)
		}
	}

	if err := f.readSamples(); err != nil {
		return nil, formatError(cf.Path(), "wave pool", err)
	}

	f.readGroups()
	f.readScripts()
	f.readChecksums()

	if lins := root.Sublist(listLins); lins != nil {
		for _, lst := range lins.ListsOfType(listIns) {
			ins, err := f.newInstrument(lst, len(f.Instruments))
			if err != nil {
				f.skip(fmt.Errorf("instrument %d: %w", len(f.Instruments), err))
				continue
			}

			f.Instruments = append(f.Instruments, ins)
		}
	}

	logrus.Debugf("gig: %s version %s, %d samples, %d instruments", cf.Path(), f.Version, len(f.Samples), len(f.Instruments))

	return f, nil
}

func (f *File) readPoolTable(ck *chunk.Chunk) error {
	fr := ck.Fields()
	headerSize := fr.Uint32()
	count := fr.Uint32()
	fr.Seek(int64(headerSize))

	if fr.Err() != nil {
		return fr.Err()
	}

	// version 3 files carry a second word per entry naming the extension
	// file, which is ignored here
	wide := fr.Remaining() >= int64(count)*8
	if !wide && fr.Remaining() < int64(count)*4 {
		return fmt.Errorf("%d entries do not fit %d bytes", count, fr.Remaining())
	}

	f.poolTable = make([]int64, count)

	for i := range f.poolTable {
		f.poolTable[i] = int64(fr.Uint32())
		if wide {
			fr.Skip(4)
		}
	}

	return fr.Err()
}

func (f *File) readSamples() error {
	wvpl := f.cf.Root().Sublist(listWvpl)
	if wvpl == nil {
		return nil
	}

	f.poolSample = make(map[int64]int)
	base := wvpl.Offset + 4

	for _, lst := range wvpl.ListsOfType(listWave) {
		poolOffset := lst.FileOffset() - base

		// an unreadable wave keeps its nil slot so later waves stay at
		// their pool position
		s, err := newSample(lst, len(f.Samples), poolOffset)
		if err != nil {
			f.skip(fmt.Errorf("sample at pool offset %d: %w", poolOffset, err))
			f.Samples = append(f.Samples, nil)

			continue
		}

		f.poolSample[poolOffset] = s.Index
		f.Samples = append(f.Samples, s)
	}

	return nil
}

// sampleFromPool maps a wave pool table index to a sample index, -1 when
// the entry is empty or dangling.
func (f *File) sampleFromPool(idx uint32) int {
	if idx == noPoolIndex {
		return -1
	}

	if f.poolTable == nil {
		if int(idx) < len(f.Samples) && f.Samples[idx] != nil {
			return int(idx)
		}

		f.skip(fmt.Errorf("wave pool index %d: %w", idx, errSampleIndex))

		return -1
	}

	if int(idx) >= len(f.poolTable) {
		f.skip(fmt.Errorf("wave pool index %d of %d: %w", idx, len(f.poolTable), errSampleIndex))
		return -1
	}

	si, ok := f.poolSample[f.poolTable[idx]]
	if !ok {
		f.skip(fmt.Errorf("wave pool offset %d: %w", f.poolTable[idx], errSampleIndex))
		return -1
	}

	return si
}

// poolIndexOf is the inverse of sampleFromPool.
func (f *File) poolIndexOf(sample int) uint32 {
	if sample < 0 || sample >= len(f.Samples) || f.Samples[sample] == nil {
		return noPoolIndex
	}

	if f.poolTable == nil {
		return uint32(sample)
	}

	off := f.Samples[sample].PoolOffset
	for i, o := range f.poolTable {
		if o == off {
			return uint32(i)
		}
	}

	return noPoolIndex
}

func (f *File) skip(err error) {
	logrus.Debugf("gig: %s: skipped %v", f.cf.Path(), err)
	f.Skipped = append(f.Skipped, err)
}

// Path returns the file name the container was opened from.
func (f *File) Path() string {
	return f.cf.Path()
}

// Tables returns the response table context of the file.
func (f *File) Tables() *Tables {
	return f.tables
}

// Sample returns the sample at index i.
func (f *File) Sample(i int) (*Sample, error) {
	if i < 0 || i >= len(f.Samples) {
		return nil, fmt.Errorf("sample %d of %d: %w", i, len(f.Samples), errSampleIndex)
	}

	if f.Samples[i] == nil {
		return nil, fmt.Errorf("sample %d: %w", i, errUnreadableSample)
	}

	return f.Samples[i], nil
}

// SampleOf returns the sample referenced by a dimension region.
func (f *File) SampleOf(dr *DimensionRegion) (*Sample, error) {
	if dr == nil || dr.SampleIndex < 0 {
		return nil, ErrNoSample
	}

	return f.Sample(dr.SampleIndex)
}

// Instrument returns the instrument at index i, or nil.
func (f *File) Instrument(i int) *Instrument {
	if i < 0 || i >= len(f.Instruments) {
		return nil
	}

	return f.Instruments[i]
}

// Close releases every sample cache and the underlying file.
func (f *File) Close() error {
	if f == nil {
		return nil
	}

	for _, s := range f.Samples {
		if s != nil {
			s.ReleaseSampleData()
		}
	}

	return f.cf.Close()
}
