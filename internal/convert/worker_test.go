package convert

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ytget/mixgrab/internal/bridge"
	"github.com/ytget/mixgrab/internal/model"
)

// writeStub creates an executable shell script standing in for ffmpeg.
// The real invocation passes the staging output path as the last
// argument.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func newConvertItem(t *testing.T, content string) *model.WorkItem {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "dj - mix.webm")
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))
	return model.NewConvertItem("https://example.com/mixes/a", input, dir, "mp3", ".mp3")
}

func drainEvents(b *bridge.Bridge) []bridge.Event {
	var events []bridge.Event
	for {
		select {
		case ev := <-b.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func lastEvent(t *testing.T, b *bridge.Bridge) bridge.Event {
	t.Helper()
	events := drainEvents(b)
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestWorkerUnsupportedFormatFailsBeforeSpawn(t *testing.T) {
	item := newConvertItem(t, "audio")
	item.TargetFormat = "opus"
	b := bridge.New(16)

	w := NewWorker(item, b, zap.NewNop())
	// A spawn attempt would fail loudly on this path.
	w.ffmpegPath = "/nonexistent/ffmpeg"
	w.Run()

	ev := lastEvent(t, b)
	require.Equal(t, bridge.EventErrored, ev.Type)
	assert.Contains(t, ev.Text, "unsupported audio format")
	assert.Contains(t, ev.Text, "opus")
}

func TestWorkerMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	item := model.NewConvertItem("id", filepath.Join(dir, "gone.webm"), dir, "mp3", ".mp3")
	b := bridge.New(16)

	NewWorker(item, b, zap.NewNop()).Run()

	ev := lastEvent(t, b)
	require.Equal(t, bridge.EventErrored, ev.Type)
	assert.Contains(t, ev.Text, "does not exist")
}

func TestWorkerEmptyInputFails(t *testing.T) {
	item := newConvertItem(t, "")
	b := bridge.New(16)

	NewWorker(item, b, zap.NewNop()).Run()

	ev := lastEvent(t, b)
	require.Equal(t, bridge.EventErrored, ev.Type)
	assert.Contains(t, ev.Text, "empty")
}

func TestWorkerMissingExecutableFails(t *testing.T) {
	item := newConvertItem(t, "audio")
	b := bridge.New(16)

	w := NewWorker(item, b, zap.NewNop())
	w.ffmpegPath = "/nonexistent/ffmpeg-mixgrab-test"
	w.Run()

	ev := lastEvent(t, b)
	require.Equal(t, bridge.EventErrored, ev.Type)
	assert.Contains(t, ev.Text, "ffmpeg executable not found")
}

func TestWorkerSuccessPublishesAndRemovesSource(t *testing.T) {
	item := newConvertItem(t, "audio")
	b := bridge.New(64)

	stub := writeStub(t, `
for out do :; done
echo "Duration: 00:00:10.00"
echo "out_time_us=5000000"
echo "out_time_us=N/A"
printf 'converted' > "$out"
exit 0
`)

	w := NewWorker(item, b, zap.NewNop())
	w.ffmpegPath = stub
	w.Run()

	events := drainEvents(b)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, bridge.EventSucceeded, last.Type)
	assert.Equal(t, item.FinalPath, last.Path)

	// A percentage progress event was emitted from the parsed stream.
	var sawPercent bool
	for _, ev := range events {
		if ev.Type == bridge.EventProgress && ev.Text == "MP3 50.0%" {
			sawPercent = true
		}
	}
	assert.True(t, sawPercent, "expected a 50%% progress event, got %v", events)

	data, err := os.ReadFile(item.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "converted", string(data))

	_, err = os.Stat(item.SourceRef)
	assert.True(t, os.IsNotExist(err), "original input must be removed after verified publish")

	_, err = os.Stat(filepath.Dir(item.TempPath))
	assert.True(t, os.IsNotExist(err), "empty staging directory must be removed")
}

func TestWorkerDiskFullClassifiedAndStagingCleaned(t *testing.T) {
	item := newConvertItem(t, "audio")
	b := bridge.New(64)

	stub := writeStub(t, `
for out do :; done
printf 'partial' > "$out"
echo "Error writing trailer: No space left on device" >&2
exit 1
`)

	w := NewWorker(item, b, zap.NewNop())
	w.ffmpegPath = stub
	w.Run()

	ev := lastEvent(t, b)
	require.Equal(t, bridge.EventErrored, ev.Type)
	assert.Contains(t, ev.Text, "disk space")

	_, err := os.Stat(item.TempPath)
	assert.True(t, os.IsNotExist(err), "partial staging file must be removed")
	_, err = os.Stat(item.SourceRef)
	assert.NoError(t, err, "original input must survive a failed conversion")
}

func TestWorkerCancelMidStream(t *testing.T) {
	item := newConvertItem(t, "audio")
	b := bridge.New(256)

	stub := writeStub(t, `
echo "Duration: 00:01:00.00"
i=0
while [ $i -lt 200 ]; do
  echo "out_time_us=${i}000000"
  i=$((i+1))
  sleep 0.05
done
`)

	w := NewWorker(item, b, zap.NewNop())
	w.ffmpegPath = stub

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run()
	}()

	time.Sleep(200 * time.Millisecond)
	item.Cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	events := drainEvents(b)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, bridge.EventProgress, last.Type, "cancellation must not be an error event")
	assert.Equal(t, bridge.CancelledText, last.Text)

	for _, ev := range events {
		assert.NotEqual(t, bridge.EventErrored, ev.Type)
	}
}

func TestWorkerPreCancelledSkipsValidation(t *testing.T) {
	item := newConvertItem(t, "audio")
	item.Cancel()
	b := bridge.New(16)

	NewWorker(item, b, zap.NewNop()).Run()

	events := drainEvents(b)
	require.Len(t, events, 1)
	assert.Equal(t, bridge.EventProgress, events[0].Type)
	assert.Equal(t, bridge.CancelledText, events[0].Text)
}
