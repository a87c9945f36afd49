package convert

import (
	"fmt"
	"strings"
)

// Known ffmpeg failure signatures, matched case-insensitively against
// the captured output tail. Order matters: the first match wins.
var errorSignatures = []struct {
	substring string
	message   string
}{
	{"no space left on device", "Not enough disk space for conversion"},
	{"permission denied", "Permission denied - check file/directory permissions"},
	{"does not contain any stream", "Input file contains no audio stream to convert"},
	{"unknown encoder", "Audio codec not supported by this ffmpeg build"},
	{"could not open codec", "Failed to initialize audio codec"},
	{"invalid data found", "Input file appears to be corrupted"},
	{"no such file or directory", "Input file not found or output directory doesn't exist"},
	{"resource temporarily unavailable", "System resources exhausted"},
	{"invalid argument", "Invalid file path or unsupported format"},
}

// Exit-code fallbacks for when the output carries no known signature.
var exitCodeMessages = map[int]string{
	1:   "General conversion error - check input file format",
	2:   "Invalid command arguments",
	126: "Permission denied executing ffmpeg",
	127: "ffmpeg executable not found",
}

// classifyError maps a non-zero ffmpeg exit into a user-facing message.
// output is the tail of the merged stdout/stderr stream.
func classifyError(output string, exitCode int) string {
	lower := strings.ToLower(output)
	for _, sig := range errorSignatures {
		if strings.Contains(lower, sig.substring) {
			return fmt.Sprintf("Conversion failed: %s (ffmpeg exit code %d)", sig.message, exitCode)
		}
	}

	base, ok := exitCodeMessages[exitCode]
	if !ok {
		base = "Unknown conversion error"
	}

	// Include the last meaningful output line when there is one.
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.Contains(line, "=") {
			// Progress key=value lines are noise, not diagnostics.
			continue
		}
		if len(line) > 100 {
			line = line[:100]
		}
		return fmt.Sprintf("Conversion failed: %s - %s (ffmpeg exit code %d)", base, line, exitCode)
	}

	return fmt.Sprintf("Conversion failed: %s (ffmpeg exit code %d)", base, exitCode)
}
