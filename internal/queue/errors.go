package queue

import "errors"

// Common errors returned by the queue package.
var (
	// ErrUnknownURL is returned when a result is recorded for a URL the
	// queue does not track.
	ErrUnknownURL = errors.New("url not tracked in queue")

	// ErrInvalidRecord is returned when a loaded snapshot contains a
	// record that fails validation.
	ErrInvalidRecord = errors.New("invalid queue record")

	// ErrInvalidOutcome is returned when MarkResult is called with an
	// outcome that cannot be recorded, such as quota-exceeded.
	ErrInvalidOutcome = errors.New("outcome cannot be recorded")
)
