package model

import (
	"path/filepath"
	"sync/atomic"
)

// Stage identifies which phase of processing a work item belongs to
type Stage string

const (
	// StageFetch is the download phase
	StageFetch Stage = "fetch"

	// StageConvert is the audio conversion phase
	StageConvert Stage = "convert"
)

// String returns the string representation of Stage
func (s Stage) String() string {
	return string(s)
}

// File naming conventions shared by workers and cleanup
const (
	// DownloadingSuffix marks an in-flight download file
	DownloadingSuffix = ".downloading"

	// StagingDirName is the hidden subdirectory conversions are written
	// into before the atomic move to the final location. Writing into a
	// subdirectory keeps ffmpeg from sniffing the container format off a
	// bogus double extension.
	StagingDirName = ".converting"
)

// WorkItem represents one unit of work: a single fetch or a single
// conversion. Items for both stages of the same logical media share the
// same ID (the source URL), which is what de-duplication and progress
// lookup key on.
type WorkItem struct {
	ID           string
	Stage        Stage
	SourceRef    string // fetch: remote URL; convert: local input path
	DestDir      string
	TempPath     string
	FinalPath    string
	TargetFormat string // convert only; format name, e.g. "mp3"
	Status       Status

	cancelRequested atomic.Bool
}

// NewFetchItem creates a fetch work item. fileName is the final on-disk
// name including extension; the temp path gets the .downloading suffix
// so a partially written file is never observable under the final name.
func NewFetchItem(sourceRef, destDir, fileName string) *WorkItem {
	return &WorkItem{
		ID:        sourceRef,
		Stage:     StageFetch,
		SourceRef: sourceRef,
		DestDir:   destDir,
		TempPath:  filepath.Join(destDir, fileName+DownloadingSuffix),
		FinalPath: filepath.Join(destDir, fileName),
		Status:    StatusQueued,
	}
}

// NewConvertItem creates a conversion work item for a completed fetch
// output. targetExt must include the leading dot.
func NewConvertItem(id, inputPath, destDir, targetFormat, targetExt string) *WorkItem {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	finalName := base + targetExt
	return &WorkItem{
		ID:           id,
		Stage:        StageConvert,
		SourceRef:    inputPath,
		DestDir:      destDir,
		TempPath:     filepath.Join(destDir, StagingDirName, finalName),
		FinalPath:    filepath.Join(destDir, finalName),
		TargetFormat: targetFormat,
		Status:       StatusQueued,
	}
}

// Cancel requests cooperative cancellation. The flag only ever moves
// from false to true; repeated calls are no-ops.
func (w *WorkItem) Cancel() {
	w.cancelRequested.Store(true)
}

// Cancelled reports whether cancellation has been requested. Workers
// poll this at their natural suspension points.
func (w *WorkItem) Cancelled() bool {
	return w.cancelRequested.Load()
}
