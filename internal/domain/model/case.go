// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Case is one immutable input record. Values holds every original column in
// corpus column order so finalized rows can be rebuilt from it.
type Case struct {
	ID        string
	Narrative string
	Values    []string
}

// Corpus is the ordered set of cases read from the input table.
type Corpus struct {
	Columns []string
	Cases   []Case

	index map[string]int
}

// NewCorpus indexes cases by id and rejects duplicates or blank ids.
func NewCorpus(columns []string, cases []Case) (*Corpus, error) {
	idx := make(map[string]int, len(cases))
	for i, c := range cases {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: row %d", ErrBlankCaseID, i+1)
		}
		if _, dup := idx[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, id)
		}
		idx[id] = i
	}
	return &Corpus{Columns: columns, Cases: cases, index: idx}, nil
}

// Len returns the number of cases.
func (c *Corpus) Len() int { return len(c.Cases) }

// ByID looks a case up by its identifier.
func (c *Corpus) ByID(id string) (Case, bool) {
	i, ok := c.index[id]
	if !ok {
		return Case{}, false
	}
	return c.Cases[i], true
}

// Position returns the corpus order of id, or -1.
func (c *Corpus) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Corpus column names.
const (
	ColumnCase = "Case"
	ColumnGist = "Gist"
)
