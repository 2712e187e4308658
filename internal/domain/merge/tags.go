package merge

import "strings"

// TagDelimiter joins a category's tags inside one cell.
const TagDelimiter = ", "

// SerializeTags joins tags with TagDelimiter. An empty list yields "".
func SerializeTags(tags []string) string {
	return strings.Join(tags, TagDelimiter)
}

// ParseTags splits a cell back into tags, keeping order and dropping blanks.
func ParseTags(cell string) []string {
	out := []string{}
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
