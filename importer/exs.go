package importer

import (
	"github.com/cwbudde/samplelib/exs"
	"github.com/cwbudde/samplelib/samples"
)

// ImportEXS imports a Logic EXS instrument. Zones of muted groups and
// zones whose sample file cannot be found are skipped.
func ImportEXS(m *samples.Manager, path string) []*Zone {
	ins, err := exs.Open(path)
	if err != nil {
		m.ReportError("Unable to open EXS file", err)
		return nil
	}

	log := m.Logger().WithField("path", path)

	if ins.Truncated != nil {
		log.WithError(ins.Truncated).Warn("instrument truncated")
	}

	for _, skipped := range ins.Skipped {
		log.WithError(skipped).Debug("zone skipped")
	}

	var zones []*Zone

	for _, ez := range ins.Zones {
		if g := ins.GroupOf(ez); g != nil && g.Mute() {
			continue
		}

		file, err := ins.SamplePath(ins.SampleOf(ez), path, m.SearchPaths())
		if err != nil {
			log.WithError(err).WithField("zone", ez.Name).Warn("zone sample missing")
			continue
		}

		id, ok := m.LoadSampleByPath(file)
		if !ok {
			continue
		}

		z := newZone(m, id, ez.Name)
		z.KeyLow, z.KeyHigh = ez.KeyLow, ez.KeyHigh
		z.VelLow, z.VelHigh = ez.VelLow, ez.VelHigh
		z.RootKey = int(ez.RootKey)

		if ez.LoopEnabled() {
			z.LoopMode = samples.LoopForward
			if ez.LoopDirection == 1 {
				z.LoopMode = samples.LoopBidirectional
			}

			z.LoopStart = int(ez.LoopStart)
			z.LoopEnd = int(ez.LoopEnd)
		} else {
			z.LoopMode = samples.LoopNone
		}

		zones = append(zones, z)
	}

	return zones
}
