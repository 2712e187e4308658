package merge

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/casetag/internal/domain/model"
)

// MergeFailurePrefix starts the notes of a row whose record could not be merged.
const MergeFailurePrefix = "Error processing: "

// Issue reports a case whose record was replaced by defaults during a merge.
type Issue struct {
	CaseID string
	Err    error
}

// MergeRecordsIntoRows renders one row per case, in the order given, with
// the classification columns filled from the case's record. A case without a
// record gets empty defaults. A record that fails validation gets empty
// defaults plus a diagnostic note; the other rows are unaffected.
func MergeRecordsIntoRows(columns []string, cases []model.Case, records []model.Record) (Table, []Issue) {
	byID := make(map[string]model.Record, len(records))
	for _, r := range records {
		byID[r.CaseID] = r
	}

	keep := make([]int, 0, len(columns))
	for i, c := range columns {
		if !IsClassificationColumn(c) {
			keep = append(keep, i)
		}
	}

	t := Table{Header: OutputHeader(columns), Rows: make([][]string, 0, len(cases))}
	var issues []Issue
	for _, c := range cases {
		row := make([]string, 0, len(t.Header))
		for _, i := range keep {
			if i < len(c.Values) {
				row = append(row, c.Values[i])
			} else {
				row = append(row, "")
			}
		}

		rec, ok := byID[c.ID]
		if !ok {
			row = append(row, defaultCells("")...)
			t.Rows = append(t.Rows, row)
			continue
		}
		cells, err := recordCells(rec)
		if err != nil {
			issues = append(issues, Issue{CaseID: c.ID, Err: err})
			cells = defaultCells(MergeFailurePrefix + err.Error())
		}
		t.Rows = append(t.Rows, append(row, cells...))
	}
	return t, issues
}

// ValidateRecord checks that a record can be persisted and read back intact.
func ValidateRecord(r model.Record) error {
	if strings.TrimSpace(r.CaseID) == "" {
		return ErrBlankCaseID
	}
	if math.IsNaN(r.Confidence) || math.IsInf(r.Confidence, 0) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrConfidenceRange, r.Confidence)
	}
	for cat, tags := range r.Tags {
		for _, tag := range tags {
			if strings.Contains(tag, ",") {
				return fmt.Errorf("%w: %s has %q", ErrTagDelimiter, cat, tag)
			}
		}
	}
	return nil
}

func recordCells(r model.Record) ([]string, error) {
	if err := ValidateRecord(r); err != nil {
		return nil, err
	}
	cells := make([]string, 0, len(model.Categories)+2)
	for _, cat := range model.Categories {
		cells = append(cells, SerializeTags(r.TagsFor(cat)))
	}
	cells = append(cells, formatConfidence(r.Confidence), r.Notes)
	return cells, nil
}

func defaultCells(notes string) []string {
	cells := make([]string, len(model.Categories), len(model.Categories)+2)
	return append(cells, formatConfidence(0), notes)
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RecordFromRow rebuilds a record from a persisted row. Status is error when
// the notes carry an error marker. A missing or unparsable confidence reads as 0.
func RecordFromRow(header, row []string) (model.Record, error) {
	cell := func(name string) string {
		for i, h := range header {
			if h == name && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	id := strings.TrimSpace(cell(model.ColumnCase))
	if id == "" {
		return model.Record{}, ErrBlankCaseID
	}
	rec := model.NewRecord(id)
	for _, cat := range model.Categories {
		rec.Tags[cat] = ParseTags(cell(cat))
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(cell(ColumnConfidence)), 64); err == nil && !math.IsNaN(v) {
		rec.Confidence = math.Min(1, math.Max(0, v))
	}
	rec.Notes = cell(ColumnNotes)
	switch {
	case strings.HasPrefix(rec.Notes, strings.TrimSpace(model.ErrorNotePrefix)):
		rec.Status = model.StatusError
	case strings.HasPrefix(rec.Notes, strings.TrimSpace(MergeFailurePrefix)):
		rec.Status = model.StatusError
		rec.Failure = model.FailureInternal
	}
	return rec, nil
}

// RecordsFromTable rebuilds every record of a persisted table, keeping the
// last row for a repeated case id.
func RecordsFromTable(t Table) ([]model.Record, error) {
	if t.Column(model.ColumnCase) < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, model.ColumnCase)
	}
	pos := map[string]int{}
	var out []model.Record
	for i, row := range t.Rows {
		rec, err := RecordFromRow(t.Header, row)
		if err != nil {
			if errors.Is(err, ErrBlankCaseID) {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if p, seen := pos[rec.CaseID]; seen {
			out[p] = rec
			continue
		}
		pos[rec.CaseID] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

// CaseFromRow projects a persisted row onto corpus columns, for recovered
// cases no longer present in the corpus.
func CaseFromRow(columns, header, row []string) model.Case {
	c := model.Case{Values: make([]string, len(columns))}
	for i, col := range columns {
		for j, h := range header {
			if h == col && j < len(row) {
				c.Values[i] = row[j]
			}
		}
		switch col {
		case model.ColumnCase:
			c.ID = c.Values[i]
		case model.ColumnGist:
			c.Narrative = c.Values[i]
		}
	}
	return c
}
