package muxer

import "errors"

var (
	// ErrUnregisteredPriority is returned when data is set for a priority that was never
	// registered or has already timed out.
	ErrUnregisteredPriority = errors.New("muxer: priority is not registered")

	// ErrManualPriorityUnavailable is returned when auto selection cannot be disabled
	// because the manually selected priority is gone.
	ErrManualPriorityUnavailable = errors.New("muxer: manual priority is not available")

	// ErrInvalidClearTarget is returned when clearing the fallback or an unknown priority.
	ErrInvalidClearTarget = errors.New("muxer: invalid clear target")

	ErrInvalidPriority = errors.New("muxer: priority out of range")
	ErrInvalidLedCount = errors.New("muxer: invalid led count")

	// ErrStopped is returned by operations issued while the loop is not running.
	ErrStopped = errors.New("muxer: not running")
)

// ErrAlreadyRunning is returned when Run is called more than once.
var ErrAlreadyRunning = errors.New("muxer: already running")
