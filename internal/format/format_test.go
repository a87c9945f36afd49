package format

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		ok       bool
		codec    string
		lossless bool
	}{
		{"mp3", true, "libmp3lame", false},
		{"MP3", true, "libmp3lame", false},
		{" flac ", true, "flac", true},
		{"wav", true, "pcm_s16le", true},
		{"alac", true, "alac", true},
		{"3gp", true, "aac", false},
		{"opus", false, "", false},
		{"", false, "", false},
	}

	for _, test := range tests {
		f, ok := Lookup(test.name)
		if ok != test.ok {
			t.Errorf("Lookup(%q) ok = %v, expected %v", test.name, ok, test.ok)
			continue
		}
		if !ok {
			continue
		}
		if f.Codec != test.codec {
			t.Errorf("Lookup(%q) codec = %s, expected %s", test.name, f.Codec, test.codec)
		}
		if f.Lossless != test.lossless {
			t.Errorf("Lookup(%q) lossless = %v, expected %v", test.name, f.Lossless, test.lossless)
		}
	}
}

func TestMatches(t *testing.T) {
	mp3, _ := Lookup("mp3")

	if !mp3.Matches("/tmp/some mix.mp3") {
		t.Error("Expected .mp3 file to match mp3 format")
	}
	if !mp3.Matches("/tmp/some mix.MP3") {
		t.Error("Expected extension match to be case-insensitive")
	}
	if mp3.Matches("/tmp/some mix.webm") {
		t.Error("Expected .webm file to not match mp3 format")
	}
}

func TestNamesCoverAllFormats(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Errorf("Expected 10 supported formats, got %d", len(names))
	}
	for _, name := range names {
		if _, ok := Lookup(name); !ok {
			t.Errorf("Names() returned %q which Lookup does not resolve", name)
		}
	}
}
