// Package repository holds the per-iteration classification results.
package repository

import (
	"context"

	"github.com/okian/casetag/internal/domain/model"
)

// Store provides read/write access to the records of one iteration.
type Store interface {
	// Put stores rec as the latest record for its case, replacing any
	// previous one in place.
	Put(ctx context.Context, rec model.Record) error

	// Get returns the record of a case.
	// Returns ErrNotFound if the case has no record.
	Get(ctx context.Context, caseID string) (model.Record, error)

	// Has reports whether a case has a record.
	Has(ctx context.Context, caseID string) bool

	// Records returns every record in first-insertion order.
	Records(ctx context.Context) []model.Record

	// IDs returns the case ids in first-insertion order.
	IDs(ctx context.Context) []string

	// Count returns the number of cases with a record.
	Count(ctx context.Context) int

	// Reset drops every record.
	Reset(ctx context.Context)
}
