// Package format enumerates the supported audio target formats and the
// ffmpeg codec each one maps to. The set is fixed; an unknown format
// name is a validation failure for the caller, never a crash.
package format

import (
	"path/filepath"
	"strings"
)

// Format is an immutable audio format profile.
type Format struct {
	Name      string // canonical lowercase name, e.g. "mp3"
	Label     string // display label, e.g. "MP3"
	Extension string // file extension including dot
	Codec     string // ffmpeg audio codec
	Lossless  bool
}

// Bitrate applied to lossy conversions. Lossless formats never get a
// bitrate argument.
const LossyBitrate = "192k"

var formats = map[string]Format{
	"wav":  {Name: "wav", Label: "WAV", Extension: ".wav", Codec: "pcm_s16le", Lossless: true},
	"flac": {Name: "flac", Label: "FLAC", Extension: ".flac", Codec: "flac", Lossless: true},
	"alac": {Name: "alac", Label: "ALAC", Extension: ".m4a", Codec: "alac", Lossless: true},
	"mp3":  {Name: "mp3", Label: "MP3", Extension: ".mp3", Codec: "libmp3lame", Lossless: false},
	"aac":  {Name: "aac", Label: "AAC", Extension: ".aac", Codec: "aac", Lossless: false},
	"m4a":  {Name: "m4a", Label: "M4A", Extension: ".m4a", Codec: "aac", Lossless: false},
	"mp4":  {Name: "mp4", Label: "MP4", Extension: ".mp4", Codec: "aac", Lossless: false},
	"webm": {Name: "webm", Label: "WEBM", Extension: ".webm", Codec: "libopus", Lossless: false},
	"ogg":  {Name: "ogg", Label: "OGG", Extension: ".ogg", Codec: "libvorbis", Lossless: false},
	"3gp":  {Name: "3gp", Label: "3GP", Extension: ".3gp", Codec: "aac", Lossless: false},
}

// Lookup returns the profile for a format name. Matching is
// case-insensitive.
func Lookup(name string) (Format, bool) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Names returns all supported format names, for error messages and
// config validation output.
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	return names
}

// Matches reports whether the file at path already carries this
// format's extension, in which case no conversion is needed.
func (f Format) Matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), f.Extension)
}
