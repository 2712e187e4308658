package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrBlankCaseID = errors.New("record has no case id")
)
