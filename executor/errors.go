package executor

import "errors"

var (
	// ErrNotFound is returned when no run with the requested id exists in
	// the registry.
	ErrNotFound = errors.New("run not found")

	// ErrHandleTaken is returned when a run's completion ticket has already
	// been claimed, either by an earlier WaitForCompletion call or by
	// CancelRun. The ticket is redeemable exactly once.
	ErrHandleTaken = errors.New("run already completed or handle taken")

	// ErrTaskFailure is returned when a run's unit of work terminated
	// abnormally instead of returning a result, typically because the agent
	// panicked.
	ErrTaskFailure = errors.New("task terminated abnormally")

	// ErrClosed is returned when new work is submitted to an executor that
	// has been shut down.
	ErrClosed = errors.New("executor closed")
)
