package convert

import (
	"testing"

	"github.com/ytget/mixgrab/internal/format"
)

func TestBuildFFmpegArgsLossy(t *testing.T) {
	mp3, _ := format.Lookup("mp3")
	args := buildFFmpegArgs("/in/mix.webm", mp3, "/in/.converting/mix.mp3")

	expected := []string{
		"-y",
		"-i", "/in/mix.webm",
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-progress", "pipe:1",
		"-nostats",
		"/in/.converting/mix.mp3",
	}

	if len(args) != len(expected) {
		t.Fatalf("Expected %d args, got %d: %v", len(expected), len(args), args)
	}
	for i, want := range expected {
		if args[i] != want {
			t.Errorf("Arg %d: expected %s, got %s", i, want, args[i])
		}
	}
}

func TestBuildFFmpegArgsLosslessHasNoBitrate(t *testing.T) {
	flac, _ := format.Lookup("flac")
	args := buildFFmpegArgs("/in/mix.webm", flac, "/in/.converting/mix.flac")

	for _, arg := range args {
		if arg == "-b:a" {
			t.Error("Lossless target must not get a bitrate argument")
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		line     string
		expected float64
	}{
		{"  Duration: 01:02:03.50, start: 0.000000, bitrate: 128 kb/s", 3723.5},
		{"Duration: 00:00:10.00", 10},
		{"out_time_us=123", 0},
		{"random noise", 0},
	}

	for _, test := range tests {
		if got := parseDuration(test.line); got != test.expected {
			t.Errorf("parseDuration(%q) = %v, expected %v", test.line, got, test.expected)
		}
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		line     string
		expected float64
		ok       bool
	}{
		{"out_time_us=5000000", 5, true},
		{"out_time_ms=2500000", 2.5, true},
		{"out_time_us=N/A", 0, false},
		{"out_time_us=garbage", 0, false},
		{"speed=1.5x", 0, false},
		{"", 0, false},
	}

	for _, test := range tests {
		got, ok := parsePosition(test.line)
		if ok != test.ok || got != test.expected {
			t.Errorf("parsePosition(%q) = (%v, %v), expected (%v, %v)",
				test.line, got, ok, test.expected, test.ok)
		}
	}
}

func TestRenderProgress(t *testing.T) {
	mp3, _ := format.Lookup("mp3")

	if got := renderProgress(mp3, 5, 10); got != "MP3 50.0%" {
		t.Errorf("Expected 'MP3 50.0%%', got %q", got)
	}

	// Position past the announced duration clamps to 100.
	if got := renderProgress(mp3, 20, 10); got != "MP3 100.0%" {
		t.Errorf("Expected 'MP3 100.0%%', got %q", got)
	}

	// Unknown duration renders indeterminate progress.
	if got := renderProgress(mp3, 5, 0); got != "MP3..." {
		t.Errorf("Expected 'MP3...', got %q", got)
	}
}
