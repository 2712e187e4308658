// Package merge turns classification records into output rows and back:
// deterministic tag serialization, row consolidation with per-case fallback
// defaults, and record recovery from persisted progress rows.
package merge

import (
	"slices"

	"github.com/okian/casetag/internal/domain/model"
)

// Output column names appended after the eight category columns.
const (
	ColumnConfidence = "confidence_score"
	ColumnNotes      = "classification_notes"
)

// Table is a header plus rows, the shape of progress and output artifacts.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// ClassificationColumns lists the columns the pipeline writes, in order.
func ClassificationColumns() []string {
	cols := slices.Clone(model.Categories)
	return append(cols, ColumnConfidence, ColumnNotes)
}

// IsClassificationColumn reports whether name is written by the pipeline.
func IsClassificationColumn(name string) bool {
	return slices.Contains(ClassificationColumns(), name)
}

// OutputHeader is the corpus header without stale classification columns,
// followed by the classification columns.
func OutputHeader(corpusColumns []string) []string {
	out := make([]string, 0, len(corpusColumns)+len(model.Categories)+2)
	for _, c := range corpusColumns {
		if !IsClassificationColumn(c) {
			out = append(out, c)
		}
	}
	return append(out, ClassificationColumns()...)
}
