// This tool imports an instrument and writes every sample it plays as a
// wav or aiff file, or packs them all into one monolith.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/samplelib/importer"
	"github.com/cwbudde/samplelib/pcm"
	"github.com/cwbudde/samplelib/samples"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

var (
	errMissingPath = errors.New("missing path argument")
	errFormat      = errors.New("unsupported output format")
	errNoSamples   = errors.New("no samples imported")
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println("You must pass the path of the instrument to extract")
		os.Exit(1)
	}

	logrus.Fatal(err)
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(out)
	outDir := fs.String("out", "", "Output directory, defaults to the instrument's folder")
	format := fs.String("format", "wav", "Output format: wav, aiff or scxm")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return errMissingPath
	}

	path := fs.Arg(0)
	if *outDir == "" {
		*outDir = filepath.Dir(path)
	}

	var failure error

	cfg := samples.DefaultConfig()
	cfg.LogLevel = "warn"

	m := samples.NewManager(cfg, func(title, message string) {
		failure = fmt.Errorf("%s: %s", title, message)
	}, nil)
	defer m.Close()

	zones := importer.Import(m, path)
	if len(zones) == 0 {
		if failure != nil {
			return failure
		}

		return fmt.Errorf("%s: %w", path, errNoSamples)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch *format {
	case "scxm":
		outPath := filepath.Join(*outDir, base+".scxm")
		if err := writeMonolith(m, outPath); err != nil {
			return err
		}

		fmt.Fprintf(out, "%d samples packed into %s\n", len(m.Samples()), outPath)

		return nil
	case "wav", "aiff":
	default:
		return fmt.Errorf("%q: %w", *format, errFormat)
	}

	ext := ".wav"
	if *format == "aiff" {
		ext = ".aif"
	}

	for i, s := range m.Samples() {
		outPath := filepath.Join(*outDir, fmt.Sprintf("%s_%03d%s", base, i, ext))
		if err := writeSample(s, outPath, *format); err != nil {
			return err
		}

		fmt.Fprintf(out, "Sample %s written to %s\n", s.ID, outPath)
	}

	return nil
}

func writeMonolith(m *samples.Manager, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	if _, err := m.ExportMonolith(f); err != nil {
		return err
	}

	return f.Close()
}

// outputBitDepth keeps the source depth where the encoders support it.
func outputBitDepth(s *samples.Sample) int {
	switch s.BitDepth {
	case 16, 24, 32:
		return s.BitDepth
	default:
		return 16
	}
}

func writeSample(s *samples.Sample, outPath, format string) error {
	if s.Data == nil {
		return fmt.Errorf("sample %s has no data", s.ID)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	bits := outputBitDepth(s)
	buf := pcm.FloatToIntBuffer(s.Data, bits)
	buf.Format = &audio.Format{NumChannels: s.Channels, SampleRate: s.SampleRate}

	var enc interface {
		Write(*audio.IntBuffer) error
		Close() error
	}

	if format == "aiff" {
		enc = aiff.NewEncoder(f, s.SampleRate, bits, s.Channels)
	} else {
		enc = wav.NewEncoder(f, s.SampleRate, bits, s.Channels, 1)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", outPath, err)
	}

	return f.Close()
}
