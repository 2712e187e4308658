package artifacts

import "errors"

// Sentinel kinds for artifact errors.
var (
	ErrNotFound    = errors.New("artifact not found")
	ErrMalformed   = errors.New("artifact malformed")
	ErrInvalidName = errors.New("invalid iteration name")
	ErrAtomicWrite = errors.New("atomic write failed")
)
