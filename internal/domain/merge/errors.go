package merge

import "errors"

// Sentinel kinds for merge errors.
var (
	ErrBlankCaseID     = errors.New("record has no case id")
	ErrConfidenceRange = errors.New("confidence outside [0,1]")
	ErrTagDelimiter    = errors.New("tag contains the list delimiter")
	ErrMissingColumn   = errors.New("missing column")
)
