// Package model defines the domain data structures shared across the
// engine: work items, processing stages, and the status state machine.
// Work items carry explicit state transitions and a single-writer
// cancellation flag set by the orchestrator and read by workers.
package model
