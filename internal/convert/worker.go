package convert

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytget/mixgrab/internal/bridge"
	"github.com/ytget/mixgrab/internal/format"
	"github.com/ytget/mixgrab/internal/model"
	"github.com/ytget/mixgrab/internal/platform"
)

const (
	// Grace period between SIGTERM and SIGKILL on cancellation
	terminateGrace = 2 * time.Second

	// Cancellation flag poll interval while ffmpeg runs
	cancelPollInterval = 100 * time.Millisecond

	// Output tail kept for error classification
	outputTailLines = 40
)

// Worker executes one conversion work item.
type Worker struct {
	item   *model.WorkItem
	bridge *bridge.Bridge
	log    *zap.Logger

	// ffmpegPath is the executable to spawn; tests substitute a stub.
	ffmpegPath string
}

// NewWorker creates a conversion worker for the given item.
func NewWorker(item *model.WorkItem, b *bridge.Bridge, log *zap.Logger) *Worker {
	return &Worker{item: item, bridge: b, log: log, ffmpegPath: FFmpegCommand}
}

// Run converts the item's input to the target format inside the staging
// directory, then publishes it and removes the original. All
// prerequisites are validated before any subprocess is spawned; every
// validation failure produces a specific error without side effects.
func (w *Worker) Run() {
	item := w.item

	if item.Cancelled() {
		w.bridge.Cancelled(item.ID, model.StageConvert)
		w.cleanupPartial()
		return
	}

	f, ok := format.Lookup(item.TargetFormat)
	if !ok {
		w.fail(fmt.Sprintf("Conversion failed: unsupported audio format %q (supported: %s)",
			item.TargetFormat, strings.Join(format.Names(), ", ")))
		return
	}

	exe, err := w.validatePrerequisites()
	if err != nil {
		w.fail(fmt.Sprintf("Conversion failed: %v", err))
		return
	}

	args := buildFFmpegArgs(item.SourceRef, f, item.TempPath)
	w.log.Info("starting conversion",
		zap.String("id", item.ID),
		zap.String("format", f.Name),
		zap.Strings("args", args))

	cmd := exec.Command(exe, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		w.fail(fmt.Sprintf("Conversion failed: cannot create output pipe: %v", err))
		return
	}
	// Merge stderr onto stdout so the duration banner and the progress
	// stream arrive on one channel.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		w.fail(fmt.Sprintf("Conversion failed: cannot start ffmpeg: %v", err))
		return
	}

	done := make(chan struct{})
	defer close(done)
	go w.watchCancellation(cmd.Process, done)

	tail := w.consumeProgress(stdout, f)

	waitErr := cmd.Wait()

	if item.Cancelled() {
		w.bridge.Cancelled(item.ID, model.StageConvert)
		w.cleanupPartial()
		return
	}

	if waitErr != nil {
		code := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		w.fail(classifyError(tail, code))
		return
	}

	w.publish()
}

// validatePrerequisites checks everything that can fail before a
// subprocess is worth spawning. It returns the resolved executable
// path.
func (w *Worker) validatePrerequisites() (string, error) {
	item := w.item

	info, err := os.Stat(item.SourceRef)
	if err != nil {
		return "", fmt.Errorf("input file does not exist: %s", item.SourceRef)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input path is not a file: %s", item.SourceRef)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("input file is empty: %s", item.SourceRef)
	}

	in, err := os.Open(item.SourceRef)
	if err != nil {
		return "", fmt.Errorf("cannot read input file: %s: %v", item.SourceRef, err)
	}
	var one [1]byte
	_, readErr := in.Read(one[:])
	in.Close()
	if readErr != nil {
		return "", fmt.Errorf("cannot read input file: %s: %v", item.SourceRef, readErr)
	}

	outDir := filepath.Dir(item.FinalPath)
	outInfo, err := os.Stat(outDir)
	if err != nil {
		return "", fmt.Errorf("output directory does not exist: %s", outDir)
	}
	if !outInfo.IsDir() {
		return "", fmt.Errorf("output path is not a directory: %s", outDir)
	}

	stagingDir := filepath.Dir(item.TempPath)
	if err := os.MkdirAll(stagingDir, platform.DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("cannot create staging directory: %s: %v", stagingDir, err)
	}
	probe := filepath.Join(stagingDir, ".write_test_"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return "", fmt.Errorf("cannot write to staging directory: %s: %v", stagingDir, err)
	}
	_ = os.Remove(probe)

	exe, err := exec.LookPath(w.ffmpegPath)
	if err != nil {
		return "", fmt.Errorf("ffmpeg executable not found: %s", w.ffmpegPath)
	}

	return exe, nil
}

// consumeProgress reads the merged output stream line by line, emitting
// progress events, and returns the output tail for error
// classification. The total duration is announced once before the
// position lines start.
func (w *Worker) consumeProgress(r io.Reader, f format.Format) string {
	var duration float64
	var tail []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if w.item.Cancelled() {
			// The watcher terminates the process; keep draining so
			// Wait can return.
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tail = append(tail, line)
		if len(tail) > outputTailLines {
			tail = tail[1:]
		}

		if duration == 0 {
			if d := parseDuration(line); d > 0 {
				duration = d
				continue
			}
		}

		if position, ok := parsePosition(line); ok {
			w.bridge.Progress(w.item.ID, model.StageConvert, renderProgress(f, position, duration))
		}
	}

	return strings.Join(tail, "\n")
}

// watchCancellation terminates the subprocess when cancellation is
// requested: SIGTERM first, SIGKILL after the grace period.
func (w *Worker) watchCancellation(p *os.Process, done <-chan struct{}) {
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !w.item.Cancelled() {
				continue
			}
			_ = p.Signal(syscall.SIGTERM)
			select {
			case <-done:
			case <-time.After(terminateGrace):
				_ = p.Kill()
			}
			return
		}
	}
}

// publish moves the converted file out of staging and removes the
// original input. The source is deleted only after the final file is
// verified non-empty; a crash between the two steps can leave both
// files, which is the accepted trade-off.
func (w *Worker) publish() {
	item := w.item

	if err := platform.VerifyNonEmptyFile(item.TempPath); err != nil {
		w.fail(fmt.Sprintf("Conversion failed: converted file not found: %v", err))
		return
	}

	if err := platform.Publish(item.TempPath, item.FinalPath); err != nil {
		w.fail(fmt.Sprintf("Conversion failed: %v", err))
		return
	}

	if platform.VerifyNonEmptyFile(item.FinalPath) == nil && item.SourceRef != item.FinalPath {
		if err := platform.RemoveIfExists(item.SourceRef); err != nil {
			w.log.Warn("failed to remove original after conversion",
				zap.String("path", item.SourceRef),
				zap.Error(err))
		}
	}

	if err := platform.RemoveDirIfEmpty(filepath.Dir(item.TempPath)); err != nil {
		w.log.Warn("failed to remove staging directory", zap.Error(err))
	}

	w.bridge.Succeeded(item.ID, model.StageConvert, item.FinalPath)
}

// fail emits the terminal error event and removes partial staging
// artifacts. Cleanup failures never mask the primary outcome.
func (w *Worker) fail(message string) {
	w.log.Error("conversion failed",
		zap.String("id", w.item.ID),
		zap.String("message", message))
	w.cleanupPartial()
	w.bridge.Error(w.item.ID, model.StageConvert, message)
}

// cleanupPartial removes the partial staging file and the staging
// directory when it is left empty.
func (w *Worker) cleanupPartial() {
	if err := platform.RemoveIfExists(w.item.TempPath); err != nil {
		w.log.Warn("failed to remove partial conversion",
			zap.String("path", w.item.TempPath),
			zap.Error(err))
	}
	if err := platform.RemoveDirIfEmpty(filepath.Dir(w.item.TempPath)); err != nil {
		w.log.Warn("failed to remove staging directory", zap.Error(err))
	}
}
