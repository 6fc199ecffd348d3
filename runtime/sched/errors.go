package sched

import "errors"

var (
	// ErrFull is returned by a spawn when every input slot of the task is
	// taken. The payload is handed back unchanged.
	ErrFull = errors.New("task capacity exhausted")

	ErrLateMissing        = errors.New("late resource not provided by init")
	ErrAlreadyInitialized = errors.New("resource already initialized")
	ErrPriority           = errors.New("priority out of range")
	ErrStarted            = errors.New("application already started")
)

// Invariant violations. These are raised with panic.
var (
	ErrCeilingViolation = errors.New("lock ceiling below caller priority")
	ErrGuardExpired     = errors.New("resource used outside its lock scope")
	ErrReentrant        = errors.New("scope entered twice")
	ErrUninitialized    = errors.New("resource used before initialization")
	ErrCounterOverflow  = errors.New("scope counter overflow")
	ErrNotOwner         = errors.New("task local borrowed by another task")
)
