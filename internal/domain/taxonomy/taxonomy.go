// Package taxonomy models the hierarchical classification schema
// (category -> subcategory -> tags) and its pure operations: parsing every
// accepted file shape into one canonical form, flattening, and merging newly
// observed tags.
package taxonomy

import (
	"slices"
	"strings"
)

// OtherSubcategory is the reserved catch-all that absorbs merged tags.
const OtherSubcategory = "other"

// GeneralSubcategory holds tags of categories given as a flat list.
const GeneralSubcategory = "general"

// Subcategory is a named, ordered tag list.
type Subcategory struct {
	Name string
	Tags []string
}

// Category is a named, ordered list of subcategories.
type Category struct {
	Name          string
	Subcategories []Subcategory
}

// Tags returns every tag of the category across its subcategories, in order.
func (c Category) Tags() []string {
	var out []string
	for _, s := range c.Subcategories {
		out = append(out, s.Tags...)
	}
	if out == nil {
		return []string{}
	}
	return out
}

// Contains reports whether tag appears in any subcategory.
func (c Category) Contains(tag string) bool {
	for _, s := range c.Subcategories {
		if slices.Contains(s.Tags, tag) {
			return true
		}
	}
	return false
}

// Taxonomy is the canonical in-memory schema. Category and subcategory order
// follow the source document so saving an unchanged taxonomy is byte-stable.
type Taxonomy struct {
	categories []Category
	// enveloped records a {"schema": ...} wrapper to restore on encode.
	enveloped bool
}

// New builds a taxonomy from categories, copying them.
func New(categories ...Category) *Taxonomy {
	t := &Taxonomy{}
	for _, c := range categories {
		t.categories = append(t.categories, cloneCategory(c))
	}
	return t
}

// Categories returns the category names in order.
func (t *Taxonomy) Categories() []string {
	names := make([]string, len(t.categories))
	for i, c := range t.categories {
		names[i] = c.Name
	}
	return names
}

// Category returns a copy of the named category.
func (t *Taxonomy) Category(name string) (Category, bool) {
	if i := t.indexOf(name); i >= 0 {
		return cloneCategory(t.categories[i]), true
	}
	return Category{}, false
}

// Contains reports whether tag exists anywhere in category.
func (t *Taxonomy) Contains(category, tag string) bool {
	i := t.indexOf(category)
	return i >= 0 && t.categories[i].Contains(tag)
}

// TagCount returns the number of tags across all categories.
func (t *Taxonomy) TagCount() int {
	n := 0
	for _, c := range t.categories {
		for _, s := range c.Subcategories {
			n += len(s.Tags)
		}
	}
	return n
}

// Enveloped reports whether the source wrapped the schema in {"schema": ...}.
func (t *Taxonomy) Enveloped() bool { return t.enveloped }

// SetEnveloped controls whether Encode wraps the schema.
func (t *Taxonomy) SetEnveloped(v bool) { t.enveloped = v }

// Flatten maps each category to all of its tags across subcategories.
func (t *Taxonomy) Flatten() map[string][]string {
	out := make(map[string][]string, len(t.categories))
	for _, c := range t.categories {
		out[c.Name] = c.Tags()
	}
	return out
}

// FlatCategory is one entry of FlattenOrdered.
type FlatCategory struct {
	Name string
	Tags []string
}

// FlattenOrdered is Flatten preserving category order.
func (t *Taxonomy) FlattenOrdered() []FlatCategory {
	out := make([]FlatCategory, len(t.categories))
	for i, c := range t.categories {
		out[i] = FlatCategory{Name: c.Name, Tags: c.Tags()}
	}
	return out
}

// Clone returns a deep copy.
func (t *Taxonomy) Clone() *Taxonomy {
	out := New(t.categories...)
	out.enveloped = t.enveloped
	return out
}

func (t *Taxonomy) indexOf(name string) int {
	for i, c := range t.categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func cloneCategory(c Category) Category {
	out := Category{Name: c.Name, Subcategories: make([]Subcategory, len(c.Subcategories))}
	for i, s := range c.Subcategories {
		out.Subcategories[i] = Subcategory{Name: s.Name, Tags: slices.Clone(s.Tags)}
		if out.Subcategories[i].Tags == nil {
			out.Subcategories[i].Tags = []string{}
		}
	}
	return out
}

// ChangeLog lists, per category, the tags a merge added.
type ChangeLog map[string][]string

// Empty reports whether the merge changed nothing.
func (c ChangeLog) Empty() bool { return len(c) == 0 }

// Total returns the number of added tags.
func (c ChangeLog) Total() int {
	n := 0
	for _, tags := range c {
		n += len(tags)
	}
	return n
}

// MergeNewTags returns a copy of t in which every observed tag missing from
// its category (in any subcategory) is appended to the category's "other"
// subcategory. Missing categories and the "other" subcategory are created on
// demand. Known categories are visited in taxonomy order, new ones sorted, and
// tags within a category sorted, so the result is deterministic.
func (t *Taxonomy) MergeNewTags(observed map[string][]string) (*Taxonomy, ChangeLog) {
	out := t.Clone()
	changes := ChangeLog{}

	order := out.Categories()
	var extra []string
	for name := range observed {
		if out.indexOf(name) < 0 {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	order = append(order, extra...)

	for _, name := range order {
		tags := normalizeObserved(observed[name])
		if len(tags) == 0 {
			continue
		}
		ci := out.indexOf(name)
		for _, tag := range tags {
			if ci >= 0 && out.categories[ci].Contains(tag) {
				continue
			}
			if ci < 0 {
				out.categories = append(out.categories, Category{Name: name})
				ci = len(out.categories) - 1
			}
			out.categories[ci].appendOther(tag)
			changes[name] = append(changes[name], tag)
		}
	}
	return out, changes
}

func (c *Category) appendOther(tag string) {
	for i := range c.Subcategories {
		if c.Subcategories[i].Name == OtherSubcategory {
			c.Subcategories[i].Tags = append(c.Subcategories[i].Tags, tag)
			return
		}
	}
	c.Subcategories = append(c.Subcategories, Subcategory{Name: OtherSubcategory, Tags: []string{tag}})
}

// normalizeObserved trims, drops blanks and nan/none placeholders, dedups and sorts.
func normalizeObserved(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if IsPlaceholder(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// IsPlaceholder reports blank cells and the nan/none markers spreadsheets leave behind.
func IsPlaceholder(tag string) bool {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "nan", "none":
		return true
	}
	return false
}
