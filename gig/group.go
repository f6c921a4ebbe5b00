package gig

const groupNameSize = 64

// Group is a named collection of samples.
type Group struct {
	Index int
	Name  string
}

func (f *File) readGroups() {
	if gri := f.root.Sublist(list3gri); gri != nil {
		if gnl := gri.Sublist(list3gnl); gnl != nil {
			for _, ck := range gnl.ChunksOfType(ck3gnm) {
				name, err := ck.ReadString(groupNameSize)
				if err != nil {
					break
				}

				// version 3 files pad the list with unused entries
				if f.Version.Major > 2 && name == "" {
					break
				}

				f.Groups = append(f.Groups, &Group{Index: len(f.Groups), Name: name})
			}
		}
	}

	if len(f.Groups) == 0 {
		f.Groups = append(f.Groups, &Group{Name: "Default Group"})
	}
}

// GroupSamples returns the samples assigned to group.
func (f *File) GroupSamples(group int) []*Sample {
	var out []*Sample

	for _, s := range f.Samples {
		if s != nil && s.GroupIndex == group {
			out = append(out, s)
		}
	}

	return out
}

// GroupOf returns the group of a sample. Out of range group indices fall
// back to the first group.
func (f *File) GroupOf(s *Sample) *Group {
	if s.GroupIndex >= 0 && s.GroupIndex < len(f.Groups) {
		return f.Groups[s.GroupIndex]
	}

	return f.Groups[0]
}
