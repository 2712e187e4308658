package taxonomy

import "errors"

// Sentinel kinds for taxonomy errors.
var (
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrSchemaMalformed = errors.New("schema malformed")
	ErrDuplicateTag    = errors.New("duplicate tag")
)
