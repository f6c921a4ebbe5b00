package gig

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/cwbudde/samplelib"
)

const checksumMarker = 1

func (f *File) readChecksums() {
	ck := f.cf.Root().Subchunk(ck3crc)
	if ck == nil {
		return
	}

	f.crcChunk = ck

	fr := ck.Fields()
	for fr.Has(8) {
		f.crcMarkers = append(f.crcMarkers, fr.Uint32())
		f.checksums = append(f.checksums, fr.Uint32())
	}
}

// SampleChecksum returns the stored CRC-32 of sample i.
func (f *File) SampleChecksum(i int) (uint32, bool) {
	if i < 0 || i >= len(f.checksums) || f.crcMarkers[i] != checksumMarker {
		return 0, false
	}

	return f.checksums[i], true
}

// ComputeSampleChecksum returns the CRC-32 (IEEE) of the raw data chunk of
// sample i.
func (f *File) ComputeSampleChecksum(i int) (uint32, error) {
	s, err := f.Sample(i)
	if err != nil {
		return 0, err
	}

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, s.data.Section()); err != nil {
		return 0, fmt.Errorf("failed to read sample %d: %w", i, err)
	}

	return h.Sum32(), nil
}

// VerifySampleChecksum recomputes the checksum of sample i and compares it
// with the stored one.
func (f *File) VerifySampleChecksum(i int) error {
	want, ok := f.SampleChecksum(i)
	if !ok {
		return fmt.Errorf("sample %d: %w", i, errChecksumTable)
	}

	got, err := f.ComputeSampleChecksum(i)
	if err != nil {
		return err
	}

	if got != want {
		return &samplelib.IntegrityError{
			What:     fmt.Sprintf("gig sample %d (%s)", i, f.Samples[i].Name),
			Expected: want,
			Actual:   got,
		}
	}

	return nil
}

// VerifySampleChecksumTable reports whether the checksum table exists, has
// one entry per sample and every entry carries the valid marker.
func (f *File) VerifySampleChecksumTable() bool {
	if f.crcChunk == nil || int(f.crcChunk.Size) != len(f.Samples)*8 {
		return false
	}

	for _, m := range f.crcMarkers {
		if m != checksumMarker {
			return false
		}
	}

	return true
}

// RebuildSampleChecksumTable recomputes every sample checksum. When the
// table is missing or has the wrong size the file needs a structural
// rewrite and true is returned with the new values kept in memory only;
// otherwise the table is patched in place if the file was opened writable.
func (f *File) RebuildSampleChecksumTable() (bool, error) {
	sums := make([]uint32, len(f.Samples))
	markers := make([]uint32, len(f.Samples))

	for i, s := range f.Samples {
		// unreadable waves keep whatever entry they had
		if s == nil {
			if i < len(f.checksums) {
				sums[i], markers[i] = f.checksums[i], f.crcMarkers[i]
			}

			continue
		}

		crc, err := f.ComputeSampleChecksum(i)
		if err != nil {
			return false, err
		}

		sums[i], markers[i] = crc, checksumMarker
	}

	f.checksums = sums
	f.crcMarkers = markers

	if f.crcChunk == nil || int(f.crcChunk.Size) != len(sums)*8 {
		return true, nil
	}

	if _, err := f.cf.WriteAt(f.ChecksumTablePayload(), f.crcChunk.Offset); err != nil {
		return false, fmt.Errorf("failed to patch checksum table: %w", err)
	}

	return false, nil
}

// ChecksumTablePayload encodes the in-memory checksum table as a 3crc
// payload.
func (f *File) ChecksumTablePayload() []byte {
	out := make([]byte, 0, len(f.checksums)*8)

	for i, crc := range f.checksums {
		out = binary.LittleEndian.AppendUint32(out, f.crcMarkers[i])
		out = binary.LittleEndian.AppendUint32(out, crc)
	}

	return out
}
