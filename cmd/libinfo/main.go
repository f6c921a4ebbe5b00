// This tool imports an instrument or sample file and lists its zones and
// the samples they play.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwbudde/samplelib/importer"
	"github.com/cwbudde/samplelib/samples"
	"github.com/sirupsen/logrus"
)

const missingPathMessage = "You must pass the path of the instrument to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	logrus.Fatal(err)
}

var (
	errMissingPath = errors.New("missing path argument")
	errNoZones     = errors.New("no zones imported")
)

var loopNames = map[samples.LoopMode]string{
	samples.LoopNone:          "none",
	samples.LoopForward:       "forward",
	samples.LoopBidirectional: "bidirectional",
	samples.LoopBackward:      "backward",
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("libinfo", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "YAML sample manager config")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return errMissingPath
	}

	cfg := samples.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = samples.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	var failure error

	m := samples.NewManager(cfg, func(title, message string) {
		failure = fmt.Errorf("%s: %s", title, message)
	}, nil)
	defer m.Close()

	path := fs.Arg(0)
	zones := importer.Import(m, path)

	if len(zones) == 0 {
		if failure != nil {
			return failure
		}

		return fmt.Errorf("%s: %w", path, errNoZones)
	}

	fmt.Fprintf(out, "File: %s\n", filepath.Base(path))
	fmt.Fprintf(out, "Zones: %d\n", len(zones))

	for i, z := range zones {
		fmt.Fprintf(out, "\tzone [%d]:\t%q keys %d-%d vel %d-%d root %d loop %s [%d,%d)\n",
			i, z.Name, z.KeyLow, z.KeyHigh, z.VelLow, z.VelHigh, z.RootKey, loopNames[z.LoopMode], z.LoopStart, z.LoopEnd)

		if s, ok := m.GetSample(z.SampleID); ok {
			fmt.Fprintf(out, "\t\tsample %s: %d ch, %d Hz, %d bit, %d frames\n",
				s.ID, s.Channels, s.SampleRate, s.BitDepth, s.Frames)
		}
	}

	rep := m.Report()
	fmt.Fprintf(out, "Samples: %d (%d bytes)\n", rep.Samples, rep.Bytes)

	return nil
}
