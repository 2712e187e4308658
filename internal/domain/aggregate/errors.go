package aggregate

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrInvalidDenominator      = errors.New("total case count must be positive")
	ErrNoClassificationColumns = errors.New("no classification columns found")
	ErrNoProcessedRows         = errors.New("no processed rows")
)
