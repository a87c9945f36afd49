// Package config loads the application configuration from a TOML file.
// Missing file means defaults; a present file is validated strictly so
// a typo fails loudly instead of silently running with defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ytget/mixgrab/internal/format"
	"github.com/ytget/mixgrab/internal/platform"
)

// Parallelism bounds, applied by clamping rather than rejecting.
const (
	DefaultMaxParallel = 2
	MinParallel        = 1
	MaxParallel        = 10
)

// DefaultTargetFormat is the conversion target used when the file does
// not name one.
const DefaultTargetFormat = "mp3"

// Config is the application configuration.
type Config struct {
	DownloadDir            string `toml:"download_dir"`
	MaxParallelDownloads   int    `toml:"max_parallel_downloads"`
	MaxParallelConversions int    `toml:"max_parallel_conversions"`
	AudioConversionEnabled bool   `toml:"audio_conversion_enabled"`
	TargetFormat           string `toml:"target_format"`
	Entitled               bool   `toml:"entitled"`
}

// Default returns the configuration used when no file exists. The
// download directory falls back through the user's Downloads folder to
// a temp location.
func Default() Config {
	dir, err := platform.HomeDownloadsDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "mixgrab")
	}
	return Config{
		DownloadDir:            dir,
		MaxParallelDownloads:   DefaultMaxParallel,
		MaxParallelConversions: DefaultMaxParallel,
		AudioConversionEnabled: false,
		TargetFormat:           DefaultTargetFormat,
		Entitled:               true,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve config directory: %w", err)
	}
	return filepath.Join(base, "mixgrab", "config.toml"), nil
}

// Load reads the file at path over the defaults. A missing file is not
// an error; a malformed or invalid one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes the parallelism limits and checks the fields a
// bad value would otherwise only break at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DownloadDir) == "" {
		return fmt.Errorf("download_dir must not be empty")
	}

	c.MaxParallelDownloads = clamp(c.MaxParallelDownloads)
	c.MaxParallelConversions = clamp(c.MaxParallelConversions)

	if c.AudioConversionEnabled {
		if _, ok := format.Lookup(c.TargetFormat); !ok {
			return fmt.Errorf("unknown target_format %q (supported: %s)",
				c.TargetFormat, strings.Join(format.Names(), ", "))
		}
	}
	return nil
}

func clamp(n int) int {
	if n < MinParallel {
		return DefaultMaxParallel
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}
