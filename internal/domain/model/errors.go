package model

import "errors"

// Sentinel kinds for corpus construction.
var (
	ErrDuplicateCase = errors.New("duplicate case id")
	ErrBlankCaseID   = errors.New("blank case id")
)
