package model

// Status represents the lifecycle state of a work item
type Status string

const (
	// StatusQueued means the item is registered but has not acquired a pool slot
	StatusQueued Status = "Queued"

	// StatusRunning means a worker is executing the item
	StatusRunning Status = "Running"

	// StatusSucceeded means the item finished and its final file is in place
	StatusSucceeded Status = "Succeeded"

	// StatusFailed means the item failed with an unrecoverable error
	StatusFailed Status = "Failed"

	// StatusCancelled means the item was cancelled before or during execution
	StatusCancelled Status = "Cancelled"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive returns true if the item still occupies a registry slot
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusRunning
}

// IsTerminal returns true if the item reached a final state.
// Terminal states have no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}
