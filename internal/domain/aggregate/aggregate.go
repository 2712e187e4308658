// Package aggregate computes case-level tag distributions over finalized
// iteration outputs against an explicit total-case denominator.
package aggregate

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/internal/domain/model"
)

// Dataset is one finalized iteration output.
type Dataset struct {
	Name  string
	Table merge.Table
}

// TagStat is the case-level frequency of one tag.
type TagStat struct {
	Tag        string
	Count      int
	Percentage float64
}

// CategoryReport summarizes one category.
type CategoryReport struct {
	Category      string
	TotalCases    int
	CasesWithTags int
	UniqueTags    int
	Distribution  []TagStat
}

// Report is the per-category distribution, in model.Categories order.
type Report struct {
	Categories []CategoryReport
}

// Category returns the report of one category.
func (r Report) Category(name string) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryReport{}, false
}

// Tag returns the stat of tag within category.
func (c CategoryReport) Tag(tag string) (TagStat, bool) {
	for _, s := range c.Distribution {
		if s.Tag == tag {
			return s, true
		}
	}
	return TagStat{}, false
}

// NormalizeTags splits a cell into lowercase tags, dropping blanks and
// nan/none placeholders.
func NormalizeTags(cell string) []string {
	var out []string
	for _, tag := range merge.ParseTags(cell) {
		tag = strings.ToLower(tag)
		if tag == "nan" || tag == "none" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// tally accumulates distinct cases per tag in first-observed order.
type tally struct {
	order    []string
	cases    map[string]map[string]struct{}
	withTags map[string]struct{}
}

func newTally() *tally {
	return &tally{cases: map[string]map[string]struct{}{}, withTags: map[string]struct{}{}}
}

func (t *tally) add(caseKey string, tags []string) {
	if len(tags) > 0 {
		t.withTags[caseKey] = struct{}{}
	}
	for _, tag := range tags {
		set, ok := t.cases[tag]
		if !ok {
			set = map[string]struct{}{}
			t.cases[tag] = set
			t.order = append(t.order, tag)
		}
		set[caseKey] = struct{}{}
	}
}

func (t *tally) report(category string, total int) CategoryReport {
	stats := make([]TagStat, 0, len(t.order))
	for _, tag := range t.order {
		n := len(t.cases[tag])
		stats = append(stats, TagStat{Tag: tag, Count: n, Percentage: percentage(n, total)})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Percentage > stats[j].Percentage })
	return CategoryReport{
		Category:      category,
		TotalCases:    total,
		CasesWithTags: len(t.withTags),
		UniqueTags:    len(stats),
		Distribution:  stats,
	}
}

func percentage(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*100*100) / 100
}

func isBlankCell(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "nan", "none":
		return true
	}
	return false
}

// processedRows yields the case key and row of every row with at least one
// category cell that is neither blank nor a placeholder. Rows without a case
// id are keyed by dataset and position.
func processedRows(ds Dataset, fn func(key string, row []string)) {
	idCol := ds.Table.Column(model.ColumnCase)
	var catCols []int
	for _, cat := range model.Categories {
		if c := ds.Table.Column(cat); c >= 0 {
			catCols = append(catCols, c)
		}
	}
	for i, row := range ds.Table.Rows {
		processed := false
		for _, c := range catCols {
			if c < len(row) && !isBlankCell(row[c]) {
				processed = true
				break
			}
		}
		if !processed {
			continue
		}
		key := ""
		if idCol >= 0 && idCol < len(row) {
			key = strings.TrimSpace(row[idCol])
		}
		if key == "" {
			key = ds.Name + "#" + strconv.Itoa(i)
		}
		fn(key, row)
	}
}

// DistinctCases counts the distinct processed cases across datasets: the
// correct denominator for a combined report.
func DistinctCases(datasets []Dataset) int {
	seen := map[string]struct{}{}
	for _, ds := range datasets {
		processedRows(ds, func(key string, _ []string) { seen[key] = struct{}{} })
	}
	return len(seen)
}

// Aggregate computes the per-category distribution across datasets. A case
// id present in several datasets counts once. totalCases is the denominator
// and must be positive; it is never derived from the data.
func Aggregate(datasets []Dataset, totalCases int) (Report, error) {
	if totalCases <= 0 {
		return Report{}, fmt.Errorf("%w: %d", ErrInvalidDenominator, totalCases)
	}

	tallies := map[string]*tally{}
	var present []string
	for _, ds := range datasets {
		for _, cat := range model.Categories {
			if ds.Table.Column(cat) >= 0 && tallies[cat] == nil {
				tallies[cat] = newTally()
				present = append(present, cat)
			}
		}
		processedRows(ds, func(key string, row []string) {
			for _, cat := range model.Categories {
				col := ds.Table.Column(cat)
				if col < 0 || col >= len(row) {
					continue
				}
				tallies[cat].add(key, NormalizeTags(row[col]))
			}
		})
	}
	if len(present) == 0 {
		return Report{}, ErrNoClassificationColumns
	}

	var rep Report
	for _, cat := range model.Categories {
		if !slices.Contains(present, cat) {
			continue
		}
		rep.Categories = append(rep.Categories, tallies[cat].report(cat, totalCases))
	}
	return rep, nil
}

// AnalyzeDataset reports a single dataset against its own processed row count.
func AnalyzeDataset(ds Dataset) (Report, error) {
	n := DistinctCases([]Dataset{ds})
	if n == 0 {
		return Report{}, fmt.Errorf("%w: %s", ErrNoProcessedRows, ds.Name)
	}
	return Aggregate([]Dataset{ds}, n)
}
