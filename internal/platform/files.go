package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Fragment patterns left behind by interrupted downloads. Cleanup globs
// these against the item's base name.
var FragmentPatterns = []string{
	"%s*.part",
	"%s*.part-Frag*",
	"%s*.ytdl",
}

// EnsureDir creates the directory if it doesn't exist
func EnsureDir(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// SanitizeFilename makes a media title safe for filesystem use: unicode
// compatibility normalization with accented characters folded to their
// ASCII base, problematic filesystem characters removed, and runs of
// whitespace collapsed.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range decomposed {
		if r >= 128 {
			continue
		}
		switch r {
		case '<', '>', '"', '/', '\\', '|', '?', '*':
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// VerifyNonEmptyFile returns an error unless path exists, is a regular
// file, and has content. A size-zero result is treated as a failure.
func VerifyNonEmptyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("path is not a file: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	return nil
}

// Publish atomically renames a fully written temp file to its final
// location. The final path becomes observable only when the file is
// complete.
func Publish(tempPath, finalPath string) error {
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("publish %s: %w", finalPath, err)
	}
	return nil
}

// RemoveIfExists deletes path, ignoring the not-exists case. Cleanup
// failures are returned for logging but must never mask a primary
// outcome.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveFragments deletes downloader fragment files that share the
// given base path (path without extension). Errors on individual
// fragments are ignored; a partial fragment left behind is harmless.
func RemoveFragments(basePath string) {
	dir := filepath.Dir(basePath)
	if _, err := os.Stat(dir); err != nil {
		return
	}

	base := filepath.Base(basePath)
	for _, pattern := range FragmentPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf(pattern, glob(base))))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				_ = os.Remove(match)
			}
		}
	}
}

// RemoveDirIfEmpty removes a directory only when it has no entries.
func RemoveDirIfEmpty(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(dirPath)
}

// HomeDownloadsDir returns the user's standard Downloads directory
func HomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// glob escapes filepath.Glob metacharacters in a literal file name.
func glob(name string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`)
	return r.Replace(name)
}
