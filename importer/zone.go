// Package importer turns instrument files into key and velocity zones
// playing samples owned by a samples.Manager.
package importer

import (
	"path/filepath"
	"strings"

	"github.com/cwbudde/samplelib/samples"
)

// Zone maps a key and velocity range to one sample.
type Zone struct {
	Name     string
	SampleID samples.SampleID

	KeyLow, KeyHigh uint8
	VelLow, VelHigh uint8
	RootKey         int

	LoopMode  samples.LoopMode
	LoopStart int
	LoopEnd   int

	manager *samples.Manager
	sample  *samples.Sample
}

// AttachToSample makes the zone a holder of its sample so purges keep it.
// Attaching twice is a no-op.
func (z *Zone) AttachToSample(m *samples.Manager) bool {
	if z.sample != nil {
		return true
	}

	s, ok := m.Attach(z.SampleID)
	if !ok {
		return false
	}

	z.manager = m
	z.sample = s

	return true
}

// Detach releases the sample held by the zone.
func (z *Zone) Detach() {
	if z.sample == nil {
		return
	}

	z.manager.Release(z.SampleID)
	z.manager = nil
	z.sample = nil
}

// Sample returns the attached sample, or nil.
func (z *Zone) Sample() *samples.Sample {
	return z.sample
}

// newZone returns a full range zone with the loop of the loaded sample.
func newZone(m *samples.Manager, id samples.SampleID, name string) *Zone {
	z := &Zone{Name: name, SampleID: id, KeyHigh: 127, VelHigh: 127, RootKey: 60}

	if s, ok := m.GetSample(id); ok {
		z.RootKey = s.RootKey
		z.LoopMode = s.LoopMode
		z.LoopStart = s.LoopStart
		z.LoopEnd = s.LoopEnd
	}

	return z
}

// Import reads the instrument at path choosing the reader by extension.
// gig files import their first instrument and soundfonts their first
// preset.
func Import(m *samples.Manager, path string) []*Zone {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gig":
		return ImportGIG(m, path, 0)
	case ".sf2":
		return ImportSF2(m, path, 0)
	case ".kmp":
		return ImportKMP(m, path)
	case ".exs":
		return ImportEXS(m, path)
	}

	if id, ok := m.LoadSampleByPath(path); ok {
		return []*Zone{newZone(m, id, filepath.Base(path))}
	}

	return nil
}
