package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/samplelib/internal/chunktest"
	"github.com/cwbudde/samplelib/internal/fixture"
	"github.com/cwbudde/samplelib/samples"
)

type raised struct {
	titles []string
}

func (r *raised) fn(title, _ string) {
	r.titles = append(r.titles, title)
}

func newTestManager(t *testing.T) (*samples.Manager, *raised) {
	t.Helper()

	r := &raised{}
	cfg := samples.DefaultConfig()
	cfg.StrictThreading = true
	cfg.LogLevel = "error"

	m := samples.NewManager(cfg, r.fn, nil)
	t.Cleanup(func() { m.Close() })

	return m, r
}

func TestImportGIG(t *testing.T) {
	m, r := newTestManager(t)
	dir := t.TempDir()

	path := chunktest.WriteFile(t, dir, "lib.gig", fixture.GIG([]fixture.GIGWave{
		{Name: "low", Channels: 1, Data: fixture.Ramp(64, 0, 10), LoopStart: 4, LoopEnd: 60},
		{Name: "high", Channels: 1, Data: fixture.Ramp(32, 0, 20)},
	}, []fixture.GIGInstrument{{Name: "keys", Regions: []fixture.GIGRegion{
		{KeyLow: 0, KeyHigh: 59, Wave: 0, UnityNote: 48},
		{KeyLow: 60, KeyHigh: 127, Wave: 1, UnityNote: 72},
	}}}))

	zones := Import(m, path)
	if len(r.titles) != 0 {
		t.Fatalf("raised %v", r.titles)
	}

	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}

	tests := []struct {
		keyLow, keyHigh uint8
		root            int
		loop            samples.LoopMode
		frames          int
	}{
		{0, 59, 48, samples.LoopForward, 64},
		{60, 127, 72, samples.LoopNone, 32},
	}

	for i, tt := range tests {
		z := zones[i]
		if z.KeyLow != tt.keyLow || z.KeyHigh != tt.keyHigh || z.RootKey != tt.root || z.LoopMode != tt.loop {
			t.Fatalf("zone %d = %+v", i, z)
		}

		if !z.AttachToSample(m) {
			t.Fatalf("zone %d: attach failed", i)
		}

		if got := z.Sample().Frames; got != tt.frames {
			t.Fatalf("zone %d: %d frames, want %d", i, got, tt.frames)
		}
	}

	if zones[0].LoopStart != 4 || zones[0].LoopEnd != 60 {
		t.Fatalf("loop = [%d,%d)", zones[0].LoopStart, zones[0].LoopEnd)
	}

	if n := m.PurgeUnreferencedSamples(); n != 0 {
		t.Fatalf("purged %d attached samples", n)
	}

	for _, z := range zones {
		z.Detach()
		z.Detach()
	}

	if n := m.PurgeUnreferencedSamples(); n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
}

func TestImportGIGBadInstrument(t *testing.T) {
	m, r := newTestManager(t)

	path := chunktest.WriteFile(t, t.TempDir(), "lib.gig", fixture.GIG(
		[]fixture.GIGWave{{Name: "a", Channels: 1, Data: fixture.Ramp(8, 0, 1)}},
		[]fixture.GIGInstrument{{Name: "keys", Regions: []fixture.GIGRegion{{KeyHigh: 127, Wave: 0, UnityNote: 60}}}},
	))

	if zones := ImportGIG(m, path, 3); zones != nil {
		t.Fatalf("got %d zones", len(zones))
	}

	if len(r.titles) != 1 {
		t.Fatalf("raised %v, want one error", r.titles)
	}

	if rep := m.Report(); rep.Samples != 0 {
		t.Fatalf("cache holds %d samples", rep.Samples)
	}
}

func TestImportGIGSharedWave(t *testing.T) {
	m, r := newTestManager(t)

	regions := []fixture.GIGRegion{{KeyHigh: 127, Wave: 0, UnityNote: 60}}
	path := chunktest.WriteFile(t, t.TempDir(), "lib.gig", fixture.GIG(
		[]fixture.GIGWave{{Name: "a", Channels: 1, Data: fixture.Ramp(16, 0, 5)}},
		[]fixture.GIGInstrument{{Name: "soft", Regions: regions}, {Name: "hard", Regions: regions}},
	))

	soft := ImportGIG(m, path, 0)
	hard := ImportGIG(m, path, 1)

	if len(r.titles) != 0 || len(soft) != 1 || len(hard) != 1 {
		t.Fatalf("zones %d/%d, raised %v", len(soft), len(hard), r.titles)
	}

	if !soft[0].SampleID.Equal(hard[0].SampleID) {
		t.Fatalf("ids differ: %+v vs %+v", soft[0].SampleID, hard[0].SampleID)
	}

	if rep := m.Report(); rep.Samples != 1 {
		t.Fatalf("cache holds %d samples, want 1", rep.Samples)
	}
}

func TestImportKMP(t *testing.T) {
	m, r := newTestManager(t)
	dir := t.TempDir()

	ksfDir := filepath.Join(dir, "strings")
	if err := os.Mkdir(ksfDir, 0o755); err != nil {
		t.Fatal(err)
	}

	chunktest.WriteFile(t, ksfDir, "LOW.KSF", fixture.KSF("low", 1, 32000, 2, 20, fixture.Ramp(24, 0, 30)))
	chunktest.WriteFile(t, ksfDir, "HIGH.KSF", fixture.KSF("high", 1, 32000, 0, 0, fixture.Ramp(16, 0, 30)))

	path := chunktest.WriteFile(t, dir, "strings.kmp", fixture.KMP("strings",
		fixture.KMPRegion{RootKey: 40, TopKey: 47, File: "LOW.KSF"},
		fixture.KMPRegion{RootKey: 50, TopKey: 55, File: "SKIPPEDSAMPL"},
		fixture.KMPRegion{RootKey: 60, TopKey: 71, File: "INTERNAL0012"},
		fixture.KMPRegion{RootKey: 80, TopKey: 127, File: "HIGH.KSF"},
	))

	zones := Import(m, path)
	if len(r.titles) != 0 {
		t.Fatalf("raised %v", r.titles)
	}

	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}

	if z := zones[0]; z.KeyLow != 0 || z.KeyHigh != 47 || z.RootKey != 40 || z.LoopStart != 2 || z.LoopEnd != 20 {
		t.Fatalf("low zone = %+v", z)
	}

	if z := zones[1]; z.KeyLow != 72 || z.KeyHigh != 127 || z.RootKey != 80 {
		t.Fatalf("high zone = %+v", z)
	}

	if rep := m.Report(); rep.Samples != 2 {
		t.Fatalf("cache holds %d samples, want 2", rep.Samples)
	}
}

func TestImportKMPMissingSample(t *testing.T) {
	m, r := newTestManager(t)

	path := chunktest.WriteFile(t, t.TempDir(), "pad.kmp", fixture.KMP("pad",
		fixture.KMPRegion{RootKey: 60, TopKey: 127, File: "GONE.KSF"},
	))

	if zones := ImportKMP(m, path); len(zones) != 0 {
		t.Fatalf("got %d zones", len(zones))
	}

	if len(r.titles) != 0 {
		t.Fatalf("raised %v", r.titles)
	}
}

func TestImportEXS(t *testing.T) {
	m, r := newTestManager(t)
	dir := t.TempDir()

	samplesDir := filepath.Join(dir, "Samples")
	if err := os.Mkdir(samplesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	fixture.WAV(t, filepath.Join(samplesDir, "kick.wav"), 1, 44100, 16, fixture.Ramp(50, 0, 100))
	fixture.WAV(t, filepath.Join(dir, "snare.wav"), 2, 44100, 16, fixture.Ramp(80, 0, 100))

	path := chunktest.WriteFile(t, dir, "kit.exs", fixture.EXS("kit", []fixture.EXSZone{
		{Name: "kick", RootKey: 36, KeyLow: 36, KeyHigh: 36, Group: 0, Sample: 0},
		{Name: "snare", RootKey: 38, KeyLow: 38, KeyHigh: 40, LoopOn: true, LoopStart: 5, LoopEnd: 30, Group: -1, Sample: 1},
		{Name: "tom", RootKey: 45, KeyLow: 45, KeyHigh: 45, Group: -1, Sample: 2},
		{Name: "broken", RootKey: 50, KeyLow: 50, KeyHigh: 50, Group: 7, Sample: 0},
	}, []string{"kick.wav", "snare.wav", "tom.wav"}))

	zones := ImportEXS(m, path)
	if len(r.titles) != 0 {
		t.Fatalf("raised %v", r.titles)
	}

	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}

	if z := zones[0]; z.Name != "kick" || z.KeyLow != 36 || z.RootKey != 36 || z.LoopMode != samples.LoopNone {
		t.Fatalf("kick zone = %+v", z)
	}

	if z := zones[1]; z.KeyHigh != 40 || z.LoopMode != samples.LoopForward || z.LoopStart != 5 || z.LoopEnd != 30 {
		t.Fatalf("snare zone = %+v", z)
	}

	s, ok := m.GetSample(zones[1].SampleID)
	if !ok || s.Channels != 2 || s.Frames != 40 {
		t.Fatalf("snare sample = %+v", s)
	}
}

func TestImportSF2(t *testing.T) {
	m, r := newTestManager(t)

	path := chunktest.WriteFile(t, t.TempDir(), "keys.sf2", fixture.SF2([]fixture.SF2Sample{
		{Name: "low", Data: fixture.Ramp(100, 0, 50), Rate: 32000, RootKey: 48, LoopStart: 10, LoopEnd: 90},
		{Name: "high", Data: fixture.Ramp(40, 0, 50), Rate: 32000, RootKey: 72},
	}, []fixture.SF2Preset{{Name: "keys", KeyLow: 36, KeyHigh: 84, Zones: []fixture.SF2Zone{
		{KeyLow: 0, KeyHigh: 59, VelHigh: 127, Sample: 0, Loop: true},
		{KeyLow: 60, KeyHigh: 90, VelLow: 64, VelHigh: 127, Sample: 1},
		{KeyLow: 100, KeyHigh: 127, VelHigh: 127, Sample: 1},
	}}}))

	zones := Import(m, path)
	if len(r.titles) != 0 {
		t.Fatalf("raised %v", r.titles)
	}

	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}

	tests := []struct {
		keyLow, keyHigh uint8
		velLow          uint8
		root            int
		loop            samples.LoopMode
	}{
		{36, 59, 0, 48, samples.LoopForward},
		{60, 84, 64, 72, samples.LoopNone},
	}

	for i, tt := range tests {
		z := zones[i]
		if z.KeyLow != tt.keyLow || z.KeyHigh != tt.keyHigh || z.VelLow != tt.velLow || z.VelHigh != 127 {
			t.Fatalf("zone %d ranges = keys %d-%d vel %d-%d", i, z.KeyLow, z.KeyHigh, z.VelLow, z.VelHigh)
		}

		if z.RootKey != tt.root || z.LoopMode != tt.loop {
			t.Fatalf("zone %d root %d loop %v", i, z.RootKey, z.LoopMode)
		}
	}

	if zones[0].LoopStart != 10 || zones[0].LoopEnd != 90 {
		t.Fatalf("loop = [%d,%d)", zones[0].LoopStart, zones[0].LoopEnd)
	}

	if zones := ImportSF2(m, path, 4); zones != nil || len(r.titles) != 1 {
		t.Fatalf("missing preset: %d zones, raised %v", len(zones), r.titles)
	}
}

func TestImportFatal(t *testing.T) {
	m, r := newTestManager(t)
	dir := t.TempDir()

	bad := chunktest.WriteFile(t, dir, "bad.exs", []byte("not an exs file at all"))

	for _, path := range []string{bad, filepath.Join(dir, "none.kmp"), filepath.Join(dir, "none.sf2")} {
		if zones := Import(m, path); zones != nil {
			t.Fatalf("%s: got %d zones", path, len(zones))
		}
	}

	if len(r.titles) != 3 {
		t.Fatalf("raised %v, want three errors", r.titles)
	}
}

func TestImportSingleFile(t *testing.T) {
	m, _ := newTestManager(t)

	path := fixture.WAV(t, filepath.Join(t.TempDir(), "one.wav"), 1, 22050, 16, fixture.Ramp(10, 0, 1))

	zones := Import(m, path)
	if len(zones) != 1 || zones[0].KeyLow != 0 || zones[0].KeyHigh != 127 {
		t.Fatalf("zones = %+v", zones)
	}
}
