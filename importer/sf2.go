package importer

import (
	"fmt"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/samples"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// ImportSF2 imports one preset of a soundfont. Every instrument region
// reachable from the preset becomes a zone whose key and velocity ranges
// are the intersection of the preset and instrument region ranges.
func ImportSF2(m *samples.Manager, path string, preset int) []*Zone {
	sf, err := samples.OpenSoundFont(path)
	if err != nil {
		m.ReportError("Unable to open SF2 file", err)
		return nil
	}

	if preset < 0 || preset >= len(sf.Presets) {
		m.ReportError("Unable to import SF2 preset",
			&samplelib.IndexError{Record: path, Field: "preset", Index: preset, Limit: len(sf.Presets)})
		return nil
	}

	p := sf.Presets[preset]

	var zones []*Zone

	for pi, pr := range p.Regions {
		for ri, ir := range pr.Instrument.Regions {
			keyLow, keyHigh, ok := intersect(pr.GetKeyRangeStart(), pr.GetKeyRangeEnd(), ir.GetKeyRangeStart(), ir.GetKeyRangeEnd())
			if !ok {
				continue
			}

			velLow, velHigh, ok := intersect(pr.GetVelocityRangeStart(), pr.GetVelocityRangeEnd(), ir.GetVelocityRangeStart(), ir.GetVelocityRangeEnd())
			if !ok {
				continue
			}

			id, loaded := m.LoadSampleFromSF2(path, "", sf, preset, pi, ri)
			if !loaded {
				continue
			}

			z := newZone(m, id, fmt.Sprintf("%s %s", p.Name, pr.Instrument.Name))
			z.KeyLow, z.KeyHigh = keyLow, keyHigh
			z.VelLow, z.VelHigh = velLow, velHigh

			if ir.GetSampleModes() == meltysynth.NoLoop {
				z.LoopMode = samples.LoopNone
			}

			zones = append(zones, z)
		}
	}

	return zones
}

func intersect(lo1, hi1, lo2, hi2 int32) (uint8, uint8, bool) {
	lo, hi := max(lo1, lo2), min(hi1, hi2)
	if lo > hi {
		return 0, 0, false
	}

	return uint8(lo), uint8(hi), true
}
