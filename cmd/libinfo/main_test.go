package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/samplelib/internal/chunktest"
	"github.com/cwbudde/samplelib/internal/fixture"
)

func TestRunRequiresPath(t *testing.T) {
	var out bytes.Buffer

	err := run(nil, &out)
	if !errors.Is(err, errMissingPath) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunListsGIGZones(t *testing.T) {
	path := chunktest.WriteFile(t, t.TempDir(), "lib.gig", fixture.GIG(
		[]fixture.GIGWave{{Name: "a", Channels: 1, Data: fixture.Ramp(64, 0, 10), LoopStart: 8, LoopEnd: 40}},
		[]fixture.GIGInstrument{{Name: "piano", Regions: []fixture.GIGRegion{{KeyLow: 21, KeyHigh: 108, Wave: 0, UnityNote: 60}}}},
	))

	var outBuf bytes.Buffer
	if err := run([]string{path}, &outBuf); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := outBuf.String()
	checks := []string{
		"File: lib.gig",
		"Zones: 1",
		"keys 21-108",
		"root 60",
		"loop forward [8,40)",
		"1 ch, 44100 Hz, 16 bit, 64 frames",
		"Samples: 1",
	}

	for _, c := range checks {
		if !strings.Contains(out, c) {
			t.Fatalf("expected output to contain %q\nfull output:\n%s", c, out)
		}
	}
}

func TestRunWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "samples.yaml")

	if err := os.WriteFile(cfg, []byte("log_level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	wav := fixture.WAV(t, filepath.Join(dir, "one.wav"), 2, 48000, 16, fixture.Ramp(20, 0, 100))

	var outBuf bytes.Buffer
	if err := run([]string{"-config", cfg, wav}, &outBuf); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(outBuf.String(), "2 ch, 48000 Hz, 16 bit, 10 frames") {
		t.Fatalf("unexpected output:\n%s", outBuf.String())
	}
}

func TestRunInvalidFile(t *testing.T) {
	path := chunktest.WriteFile(t, t.TempDir(), "broken.kmp", []byte("junk"))

	var outBuf bytes.Buffer
	if err := run([]string{path}, &outBuf); err == nil {
		t.Fatal("expected error for a broken multisample")
	}
}
