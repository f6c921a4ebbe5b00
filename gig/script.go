package gig

import (
	"fmt"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/google/uuid"
)

// ScriptLanguage identifies the language of a script's source text.
type ScriptLanguage uint32

// ScriptLanguageNKSP is the only language defined so far.
const ScriptLanguageNKSP ScriptLanguage = 0

// Script is a real-time instrument script stored in the file.
type Script struct {
	ck *chunk.Chunk

	Index       int
	Group       int
	Name        string
	Compression uint32
	Encoding    uint32
	Language    ScriptLanguage
	Bypass      bool
	CRC         uint32
	UUID        uuid.UUID
	Text        string
}

// ScriptGroup is a named collection of scripts.
type ScriptGroup struct {
	Name    string
	Scripts []int
}

var _ ChunkBacked = (*Script)(nil)

func newScript(ck *chunk.Chunk, index, group int) (*Script, error) {
	sc := &Script{ck: ck, Index: index, Group: group}

	fr := ck.Fields()
	headerSize := fr.Uint32()
	sc.Compression = fr.Uint32()
	sc.Encoding = fr.Uint32()
	sc.Language = ScriptLanguage(fr.Uint32())
	sc.Bypass = fr.Uint32()&1 != 0
	sc.CRC = fr.Uint32()
	nameSize := fr.Uint32()

	if fr.Err() != nil {
		return nil, fmt.Errorf("Scri header: %w", fr.Err())
	}

	if int64(nameSize) > fr.Remaining() {
		return nil, fmt.Errorf("Scri name of %d bytes exceeds chunk", nameSize)
	}

	sc.Name = string(fr.Bytes(int(nameSize)))

	if headerSize >= 6*4+nameSize+16 {
		copy(sc.UUID[:], fr.Bytes(16))
	} else {
		sc.UUID = uuid.New()
	}

	fr.Seek(4 + int64(headerSize))

	if fr.Err() != nil {
		return nil, fmt.Errorf("Scri header size %d: %w", headerSize, fr.Err())
	}

	sc.Text = string(fr.Bytes(int(fr.Remaining())))

	return sc, nil
}

// Offset returns the file offset of the Scri chunk.
func (sc *Script) Offset() int64 {
	return sc.ck.FileOffset()
}

// ChunkID returns the Scri chunk id.
func (sc *Script) ChunkID() chunk.ID {
	return ckScri
}

func (f *File) readScripts() {
	ls := f.root.Sublist(list3LS)
	if ls == nil {
		return
	}

	for _, rtis := range ls.ListsOfType(listRTIS) {
		g := &ScriptGroup{Name: "Default Group"}

		if ck := rtis.Subchunk(ckLsnm); ck != nil {
			if name, err := ck.ReadString(int(ck.Size)); err == nil {
				g.Name = name
			}
		}

		gi := len(f.ScriptGroups)

		for _, ck := range rtis.ChunksOfType(ckScri) {
			sc, err := newScript(ck, len(f.Scripts), gi)
			if err != nil {
				f.skip(fmt.Errorf("script group %q: %w", g.Name, err))
				continue
			}

			g.Scripts = append(g.Scripts, sc.Index)
			f.Scripts = append(f.Scripts, sc)
		}

		f.ScriptGroups = append(f.ScriptGroups, g)
	}
}

// scriptAt resolves the payload offset stored in a script slot.
func (f *File) scriptAt(offset int64) int {
	for _, sc := range f.Scripts {
		if sc.ck.Offset == offset {
			return sc.Index
		}
	}

	return -1
}
