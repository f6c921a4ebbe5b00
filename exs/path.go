package exs

import (
	"os"
	"path/filepath"

	"github.com/cwbudde/samplelib"
)

// SamplePath locates the audio file of s. It tries the stored path, the
// directory of the EXS file, a Samples folder next to it and finally each
// search directory.
func (ins *Instrument) SamplePath(s *Sample, exsPath string, searchDirs []string) (string, error) {
	name := s.FileName
	if name == "" {
		name = s.Name
	}

	exsDir := filepath.Dir(exsPath)

	var candidates []string
	if s.FilePath != "" {
		candidates = append(candidates, filepath.Join(filepath.FromSlash(s.FilePath), name))
	}

	candidates = append(candidates,
		filepath.Join(exsDir, name),
		filepath.Join(exsDir, "Samples", name),
	)

	for _, dir := range searchDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, nil
		}
	}

	return "", &samplelib.MissingResourceError{Path: candidates[0], Err: os.ErrNotExist}
}
