package samples

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
)

// DefaultRootMarker stands for the caller supplied root in relative paths.
const DefaultRootMarker = "$ROOT"

// Config configures a Manager.
type Config struct {
	// SearchPaths are tried, in order, for samples whose path moved.
	SearchPaths []string `yaml:"search_paths,omitempty"`

	// RootMarker replaces the project root in relativized addresses.
	RootMarker string `yaml:"root_marker,omitempty"`

	// StrictThreading panics when a mutation runs concurrently with another.
	StrictThreading bool `yaml:"strict_threading,omitempty"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level,omitempty"`

	// HashCacheDir holds the persistent content hash cache. Empty keeps
	// hashes in memory only.
	HashCacheDir string `yaml:"hash_cache_dir,omitempty"`

	// MonolithReadChunk is the number of frames decoded per read when
	// loading from a monolith.
	MonolithReadChunk int `yaml:"monolith_read_chunk,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		RootMarker:        DefaultRootMarker,
		LogLevel:          "info",
		MonolithReadChunk: 1 << 16,
	}
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse sample manager config: %w", err)
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("sample manager config: %w", err)
	}

	if cfg.MonolithReadChunk <= 0 {
		cfg.MonolithReadChunk = DefaultConfig().MonolithReadChunk
	}

	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample manager config: %w", err)
	}

	return data, nil
}

func (c Config) logger() *logrus.Logger {
	l := logrus.New()

	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}

	return l
}
