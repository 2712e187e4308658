package service

import "errors"

// Sentinel kinds for iteration errors.
var (
	ErrInvalidRequest   = errors.New("invalid iteration request")
	ErrAlreadyRunning   = errors.New("an iteration is already running")
	ErrIterationAborted = errors.New("iteration aborted")
	ErrFinalize         = errors.New("finalize iteration")
)
