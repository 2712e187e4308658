package merge

import (
	"slices"
	"strings"

	"github.com/okian/casetag/internal/domain/model"
)

// ObservedTags collects, per category, the distinct tags found in a results
// table. Blank cells and nan/none placeholders are skipped. Categories
// missing from the header are absent from the result.
func ObservedTags(t Table) map[string][]string {
	out := map[string][]string{}
	for _, cat := range model.Categories {
		col := t.Column(cat)
		if col < 0 {
			continue
		}
		seen := map[string]struct{}{}
		for _, row := range t.Rows {
			if col >= len(row) {
				continue
			}
			for _, tag := range ParseTags(row[col]) {
				switch strings.ToLower(tag) {
				case "nan", "none":
					continue
				}
				if _, ok := seen[tag]; ok {
					continue
				}
				seen[tag] = struct{}{}
				out[cat] = append(out[cat], tag)
			}
		}
		slices.Sort(out[cat])
	}
	return out
}
