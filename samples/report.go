package samples

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Report summarizes the manager's cache.
type Report struct {
	Samples     int
	Missing     int
	Held        int
	Aliases     int
	Bytes       int64
	OpenHandles int
}

// Report takes a snapshot of the cache. It may run concurrently with
// loads.
func (m *Manager) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Report{
		Samples:     len(m.samples),
		Aliases:     len(m.aliases),
		OpenHandles: len(m.gigFiles) + len(m.sf2Files) + len(m.monoliths),
	}

	for _, s := range m.samples {
		if s.missing {
			r.Missing++
		}

		if s.holders.Load() > 0 {
			r.Held++
		}

		r.Bytes += int64(s.Bytes())
	}

	return r
}

// RunReporter logs a report every interval until ctx is done. When purge
// is set, unreferenced samples are dropped before each report.
func (m *Manager) RunReporter(ctx context.Context, interval time.Duration, purge bool) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if purge {
				m.PurgeUnreferencedSamples()
			}

			r := m.Report()
			m.log.WithFields(logrus.Fields{
				"samples": r.Samples,
				"missing": r.Missing,
				"held":    r.Held,
				"aliases": r.Aliases,
				"bytes":   r.Bytes,
				"handles": r.OpenHandles,
			}).Debug("sample cache")
		}
	}
}
