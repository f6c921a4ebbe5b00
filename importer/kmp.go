package importer

import (
	"os"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/korg"
	"github.com/cwbudde/samplelib/samples"
	"github.com/sirupsen/logrus"
)

// ImportKMP imports a Korg multisample. Regions are sorted by top key, so
// each region starts one key above the previous one. Regions without an
// external KSF file keep their key range but produce no zone.
func ImportKMP(m *samples.Manager, path string) []*Zone {
	ins, err := korg.OpenKMP(path)
	if err != nil {
		m.ReportError("Unable to open KMP file", err)
		return nil
	}

	var (
		zones []*Zone
		low   uint8
	)

	for _, r := range ins.Regions {
		keyLow := low
		low = r.TopKey + 1

		if !r.HasExternalSample() {
			continue
		}

		file := r.FullSampleFileName()
		if _, err := os.Stat(file); err != nil {
			m.Logger().WithError(&samplelib.MissingResourceError{Path: file, Err: err}).
				WithField("path", path).Warn("multisample region skipped")
			continue
		}

		id, ok := m.LoadSampleByPath(file)
		if !ok {
			continue
		}

		z := newZone(m, id, r.SampleFileName)
		z.KeyLow, z.KeyHigh = keyLow, r.TopKey
		z.RootKey = int(r.OriginalKey)
		zones = append(zones, z)

		logrus.Debugf("kmp %s: region %d-%d -> %s", ins.DisplayName(), keyLow, r.TopKey, file)
	}

	return zones
}
