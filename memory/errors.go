package memory

import "errors"

var (
	// ErrBlockNotFound is returned when no memory block carries the
	// requested label.
	ErrBlockNotFound = errors.New("memory block not found")

	// ErrSharedBlockNotFound is returned when a shared block reference
	// cannot be resolved against the shared registry.
	ErrSharedBlockNotFound = errors.New("shared memory block not found")

	// ErrContextBudgetExceeded is returned when moving a block into the
	// context window would push the combined in-context size over the
	// configured budget. The block stays out of context.
	ErrContextBudgetExceeded = errors.New("context budget exceeded")
)
