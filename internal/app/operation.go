package app

import "time"

// Operation tracks the CLI command an app instance was created for.
// Its ID tags every log line written during the run.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation started at now. The ID is derived from
// the start time so log lines from one run sort and group together.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		Status:    "success",
		StartedAt: now,
	}
}

// Record notes the parameters of a call and marks the operation failed if err is non-nil.
func (op *Operation) Record(parameters string, err error) {
	op.Parameters = parameters
	if err != nil {
		op.Status = "error"
	}
}

// Failed reports whether any recorded call failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// Duration returns the time elapsed between the start and now.
func (op *Operation) Duration(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
