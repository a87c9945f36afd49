package orchestrator

// Notifier is the presentation boundary. The orchestrator calls it from
// the control loop goroutine only, so implementations need no locking
// of their own, but they must return promptly: a slow notifier stalls
// event handling.
type Notifier interface {
	// BatchStarted fires on the idle-to-active transition, once per
	// active period regardless of how many batches pile on.
	BatchStarted()

	// AllFinished fires when the last registered item reaches a
	// terminal state, including items spawned mid-flight by the
	// conversion chain.
	AllFinished()

	// TaskProgress delivers display text for an in-flight item.
	TaskProgress(id, text string)

	// TaskResult reports a completed stage. willConvert is true when a
	// conversion has been scheduled for the fetched file, meaning the
	// item is not done yet.
	TaskResult(id, path string, willConvert bool)

	// TaskError reports a terminal failure.
	TaskError(id, message string)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) BatchStarted()                                {}
func (NopNotifier) AllFinished()                                 {}
func (NopNotifier) TaskProgress(id, text string)                 {}
func (NopNotifier) TaskResult(id, path string, willConvert bool) {}
func (NopNotifier) TaskError(id, message string)                 {}
