package convert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/mixgrab/internal/format"
)

// FFmpeg invocation constants
const (
	FFmpegCommand      = "ffmpeg"
	ProgressPipeTarget = "pipe:1"
)

// Progress stream markers. ffmpeg reports the current position in
// microseconds; both spellings appear depending on the build.
const (
	progressTimeUS = "out_time_us="
	progressTimeMS = "out_time_ms="
)

var durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+\.?\d*)`)

// buildFFmpegArgs builds the ffmpeg argument list for one conversion.
// A bitrate is set only for lossy targets; the "-vn" flag strips any
// cover-art video stream.
func buildFFmpegArgs(inputPath string, f format.Format, stagingPath string) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", f.Codec,
	}
	if !f.Lossless {
		args = append(args, "-b:a", format.LossyBitrate)
	}
	args = append(args,
		"-progress", ProgressPipeTarget,
		"-nostats",
		stagingPath,
	)
	return args
}

// parseDuration extracts the total duration in seconds from an ffmpeg
// duration-announcement line, returning 0 when the line is not one.
func parseDuration(line string) float64 {
	m := durationPattern.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.ParseFloat(m[3], 64)
	return float64(hours)*3600 + float64(minutes)*60 + seconds
}

// parsePosition extracts the current position in seconds from a
// progress line. ok is false for non-position, N/A, and malformed
// lines, all of which are ignored without error.
func parsePosition(line string) (float64, bool) {
	var value string
	switch {
	case strings.HasPrefix(line, progressTimeUS):
		value = strings.TrimPrefix(line, progressTimeUS)
	case strings.HasPrefix(line, progressTimeMS):
		value = strings.TrimPrefix(line, progressTimeMS)
	default:
		return 0, false
	}

	if strings.EqualFold(strings.TrimSpace(value), "n/a") {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(micros) / 1_000_000, true
}

// renderProgress formats a progress notification for the target format.
// With a known duration the percentage is clamped to 100; without one
// the notification is indeterminate.
func renderProgress(f format.Format, position, duration float64) string {
	if duration > 0 {
		percent := position / duration * 100
		if percent > 100 {
			percent = 100
		}
		return fmt.Sprintf("%s %.1f%%", f.Label, percent)
	}
	return fmt.Sprintf("%s...", f.Label)
}
