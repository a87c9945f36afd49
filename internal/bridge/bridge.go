// Package bridge carries worker-produced events into the orchestrator's
// control loop. It is the only path from worker goroutines back into
// orchestrator state: workers emit, exactly one consumer drains, so the
// task registries keep a single writer and need no locks.
package bridge

import "github.com/ytget/mixgrab/internal/model"

// EventType discriminates bridge events.
type EventType int

const (
	// EventProgress is a non-terminal progress notification
	EventProgress EventType = iota

	// EventSucceeded is the terminal success notification
	EventSucceeded

	// EventErrored is the terminal failure notification
	EventErrored
)

// Event is one notification from a worker. Events for a given ID are
// delivered in emission order; ordering across different IDs is not
// guaranteed.
type Event struct {
	ID    string
	Stage model.Stage
	Type  EventType
	Text  string // progress text or error message
	Path  string // final path, set on EventSucceeded
}

// DefaultBuffer is sized so bursts of progress lines from a full set of
// workers do not block; overflow progress events are dropped.
const DefaultBuffer = 256

// CancelledText is the progress text of the final notification a
// cancelled item emits. Cancellation is never reported through the
// error path.
const CancelledText = "Cancelled"

// Bridge is the single-consumer event channel between workers and the
// orchestrator.
type Bridge struct {
	events chan Event
}

// New creates a bridge with the given channel buffer. A buffer of 0
// falls back to DefaultBuffer.
func New(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bridge{events: make(chan Event, buffer)}
}

// Progress enqueues a progress notification without blocking. Progress
// is lossy by contract: when the consumer is behind and the buffer is
// full, the event is dropped rather than stalling the worker.
func (b *Bridge) Progress(id string, stage model.Stage, text string) {
	select {
	case b.events <- Event{ID: id, Stage: stage, Type: EventProgress, Text: text}:
	default:
	}
}

// Succeeded enqueues the terminal success notification for an item.
// Terminal events are never dropped; the send blocks until the consumer
// has room.
func (b *Bridge) Succeeded(id string, stage model.Stage, finalPath string) {
	b.events <- Event{ID: id, Stage: stage, Type: EventSucceeded, Path: finalPath}
}

// Error enqueues the terminal failure notification for an item.
// Terminal events are never dropped.
func (b *Bridge) Error(id string, stage model.Stage, message string) {
	b.events <- Event{ID: id, Stage: stage, Type: EventErrored, Text: message}
}

// Cancelled enqueues the last notification of a cancelled item. It is a
// progress event for consumers, but as the item's terminal signal it is
// never dropped.
func (b *Bridge) Cancelled(id string, stage model.Stage) {
	b.events <- Event{ID: id, Stage: stage, Type: EventProgress, Text: CancelledText}
}

// Events returns the receive side of the bridge. Only the orchestrator
// control loop may read from it.
func (b *Bridge) Events() <-chan Event {
	return b.events
}
