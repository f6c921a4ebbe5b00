package importer

import (
	"fmt"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/gig"
	"github.com/cwbudde/samplelib/samples"
)

// ImportGIG imports one instrument of a gig file. Each region contributes
// a zone per velocity split of its default articulation; other dimensions
// are left at zone zero.
func ImportGIG(m *samples.Manager, path string, instrument int) []*Zone {
	f, err := gig.Open(path, gig.Options{})
	if err != nil {
		m.ReportError("Unable to open GIG file", err)
		return nil
	}
	defer f.Close()

	ins := f.Instrument(instrument)
	if ins == nil {
		m.ReportError("Unable to import GIG instrument",
			&samplelib.IndexError{Record: path, Field: "instrument", Index: instrument, Limit: len(f.Instruments)})
		return nil
	}

	var zones []*Zone

	for ri, r := range ins.Regions {
		for _, split := range velocitySplits(r) {
			idx := split.dr.SampleIndex
			if idx < 0 {
				idx = r.SampleIndex
			}

			if idx < 0 {
				continue
			}

			// waves are shared by instruments, so the identity leaves the
			// instrument out
			id, ok := m.LoadSampleFromGIG(path, "", f, -1, -1, idx)
			if !ok {
				continue
			}

			z := newZone(m, id, fmt.Sprintf("%s %d", ins.Name, ri))
			z.KeyLow, z.KeyHigh = r.KeyLow, r.KeyHigh
			z.VelLow, z.VelHigh = split.low, split.high
			z.RootKey = int(split.dr.UnityNote)

			if len(split.dr.SampleLoops) > 0 {
				l := split.dr.SampleLoops[0]
				z.LoopMode = gigLoopMode(l.Type)
				z.LoopStart = int(l.Start)
				z.LoopEnd = int(l.Start + l.Length)
			}

			zones = append(zones, z)
		}
	}

	return zones
}

type velocitySplit struct {
	dr        *gig.DimensionRegion
	low, high uint8
}

// velocitySplits walks the velocity range and merges consecutive values
// selecting the same dimension region.
func velocitySplits(r *gig.Region) []velocitySplit {
	vd := -1

	for i, d := range r.Dimensions {
		if d.Type == gig.DimensionVelocity {
			vd = i
			break
		}
	}

	if vd < 0 {
		if len(r.DimensionRegions) == 0 {
			return nil
		}

		return []velocitySplit{{dr: r.DimensionRegions[0], low: r.VelLow, high: r.VelHigh}}
	}

	var (
		out    []velocitySplit
		values [8]uint8
	)

	for v := int(r.VelLow); v <= int(r.VelHigh); v++ {
		values[vd] = uint8(v)

		dr := r.GetDimensionRegionByValue(values)
		if dr == nil {
			continue
		}

		if n := len(out); n > 0 && out[n-1].dr == dr && int(out[n-1].high) == v-1 {
			out[n-1].high = uint8(v)
			continue
		}

		out = append(out, velocitySplit{dr: dr, low: uint8(v), high: uint8(v)})
	}

	return out
}

func gigLoopMode(t gig.LoopType) samples.LoopMode {
	switch t {
	case gig.LoopBidirectional:
		return samples.LoopBidirectional
	case gig.LoopBackward:
		return samples.LoopBackward
	default:
		return samples.LoopForward
	}
}
