package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Missing file must not be an error: %v", err)
	}
	if cfg.MaxParallelDownloads != DefaultMaxParallel {
		t.Errorf("Expected default %d, got %d", DefaultMaxParallel, cfg.MaxParallelDownloads)
	}
	if cfg.DownloadDir == "" {
		t.Error("Default download dir must not be empty")
	}
	if cfg.AudioConversionEnabled {
		t.Error("Conversion must be off by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
download_dir = "/data/mixes"
max_parallel_downloads = 4
max_parallel_conversions = 3
audio_conversion_enabled = true
target_format = "flac"
entitled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DownloadDir != "/data/mixes" {
		t.Errorf("download_dir = %q", cfg.DownloadDir)
	}
	if cfg.MaxParallelDownloads != 4 || cfg.MaxParallelConversions != 3 {
		t.Errorf("parallelism = %d/%d", cfg.MaxParallelDownloads, cfg.MaxParallelConversions)
	}
	if !cfg.AudioConversionEnabled || cfg.TargetFormat != "flac" {
		t.Errorf("conversion = %v/%q", cfg.AudioConversionEnabled, cfg.TargetFormat)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "max_parallel_downloads = [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestLoadUnknownFormatFails(t *testing.T) {
	path := writeConfig(t, `
download_dir = "/data/mixes"
audio_conversion_enabled = true
target_format = "opus"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unknown format")
	}
}

func TestUnknownFormatAllowedWhenConversionDisabled(t *testing.T) {
	path := writeConfig(t, `
download_dir = "/data/mixes"
audio_conversion_enabled = false
target_format = "opus"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Disabled conversion must not validate the format: %v", err)
	}
}

func TestValidateClampsParallelism(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, DefaultMaxParallel},
		{-3, DefaultMaxParallel},
		{1, 1},
		{10, 10},
		{25, MaxParallel},
	}

	for _, test := range tests {
		cfg := Default()
		cfg.MaxParallelDownloads = test.in
		if err := cfg.Validate(); err != nil {
			t.Fatal(err)
		}
		if cfg.MaxParallelDownloads != test.expected {
			t.Errorf("clamp(%d) = %d, expected %d", test.in, cfg.MaxParallelDownloads, test.expected)
		}
	}
}

func TestValidateEmptyDownloadDirFails(t *testing.T) {
	cfg := Default()
	cfg.DownloadDir = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for empty download_dir")
	}
}
