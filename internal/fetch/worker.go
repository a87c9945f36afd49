package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ytget/mixgrab/internal/bridge"
	"github.com/ytget/mixgrab/internal/model"
	"github.com/ytget/mixgrab/internal/platform"
)

// Poll interval for the cancellation flag while the capability blocks
const cancelPollInterval = 100 * time.Millisecond

// Worker executes one download work item.
type Worker struct {
	item    *model.WorkItem
	fetcher Fetcher
	bridge  *bridge.Bridge
	log     *zap.Logger
}

// NewWorker creates a fetch worker for the given item.
func NewWorker(item *model.WorkItem, fetcher Fetcher, b *bridge.Bridge, log *zap.Logger) *Worker {
	return &Worker{item: item, fetcher: fetcher, bridge: b, log: log}
}

// Run downloads the item to its temp path and publishes it with an
// atomic rename. It emits progress events during the transfer and
// exactly one terminal event, except for cancellation, which is
// reported as a progress notification followed by cleanup.
func (w *Worker) Run() {
	item := w.item

	if item.Cancelled() {
		w.bridge.Cancelled(item.ID, model.StageFetch)
		w.cleanup()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The capability can block on network I/O without invoking the
	// progress callback, so the flag is also polled on a ticker.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if item.Cancelled() {
					cancel()
					return
				}
			}
		}
	}()

	localPath, err := w.fetcher.Fetch(ctx, item.SourceRef, item.TempPath, func(p Progress) {
		if item.Cancelled() {
			cancel()
			return
		}
		w.bridge.Progress(item.ID, model.StageFetch, renderProgress(p))
	})

	// The flag is the sole authority on cancellation. An error message
	// that merely mentions a canceled context (a transport error can
	// embed the phrase) is a plain failure.
	if item.Cancelled() {
		w.bridge.Cancelled(item.ID, model.StageFetch)
		w.cleanup()
		return
	}

	if err != nil {
		w.fail(fmt.Sprintf("Download failed: %v", err))
		return
	}

	if localPath != "" && localPath != item.TempPath {
		// The capability wrote somewhere else; treat its path as the
		// temp artifact to publish.
		item.TempPath = localPath
	}

	if err := platform.VerifyNonEmptyFile(item.TempPath); err != nil {
		w.fail(fmt.Sprintf("Download failed: %v", err))
		return
	}

	if err := platform.Publish(item.TempPath, item.FinalPath); err != nil {
		w.fail(fmt.Sprintf("Download failed: %v", err))
		return
	}

	w.bridge.Succeeded(item.ID, model.StageFetch, item.FinalPath)
}

// fail emits the terminal error event and removes partial artifacts.
func (w *Worker) fail(message string) {
	w.log.Error("download failed",
		zap.String("id", w.item.ID),
		zap.String("message", message))
	w.cleanup()
	w.bridge.Error(w.item.ID, model.StageFetch, message)
}

// cleanup removes the partial temp file and any fragment files sharing
// the item's base name. Cleanup errors are logged and never escalated.
func (w *Worker) cleanup() {
	if err := platform.RemoveIfExists(w.item.TempPath); err != nil {
		w.log.Warn("failed to remove partial download",
			zap.String("path", w.item.TempPath),
			zap.Error(err))
	}

	// filepath.Ext only considers the final path element; dots in
	// parent directories never truncate the base.
	base := strings.TrimSuffix(w.item.FinalPath, filepath.Ext(w.item.FinalPath))
	platform.RemoveFragments(base)
}

// renderProgress formats one progress sample for display.
func renderProgress(p Progress) string {
	if p.Total <= 0 {
		if p.Rate > 0 {
			return fmt.Sprintf("Downloading at %s/s", humanize.Bytes(uint64(p.Rate)))
		}
		return "Downloading..."
	}

	text := fmt.Sprintf("%d%%", p.Percent)
	if p.Rate > 0 {
		text += fmt.Sprintf(" at %s/s", humanize.Bytes(uint64(p.Rate)))
	}
	text += fmt.Sprintf(" of %s", humanize.Bytes(uint64(p.Total)))
	return text
}
