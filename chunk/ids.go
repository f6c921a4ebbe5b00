package chunk

import "github.com/go-audio/riff"

// ID is a 4-byte chunk or list type tag.
type ID = [4]byte

var (
	// IDRiff is the little endian root chunk id.
	IDRiff = riff.RiffID
	// IDRifx is the big endian root chunk id.
	IDRifx = ID{'R', 'I', 'F', 'X'}
	// IDList is the id of a nested list chunk.
	IDList = ID{'L', 'I', 'S', 'T'}
	// IDInfo is the list type of a LIST/INFO chunk.
	IDInfo = ID{'I', 'N', 'F', 'O'}
	// IDFmt is the id of a wave format chunk.
	IDFmt = riff.FmtID
	// IDData is the id of a wave data chunk.
	IDData = riff.DataFormatID
)

// MakeID converts a string of up to four characters into an ID, padding
// with spaces.
func MakeID(s string) ID {
	id := ID{' ', ' ', ' ', ' '}
	copy(id[:], s)

	return id
}

func nullTermStr(b []byte) string {
	return string(b[:clen(b)])
}

func clen(num []byte) int {
	for i := range num {
		if num[i] == 0 {
			return i
		}
	}

	return len(num)
}
