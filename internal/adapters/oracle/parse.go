package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON returns the JSON document in content: the content itself when
// it parses, otherwise the first fenced code block, otherwise the outermost
// brace-delimited span.
func ExtractJSON(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil && json.Valid([]byte(m[1])) {
		return []byte(m[1]), nil
	}
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		if span := trimmed[start : end+1]; json.Valid([]byte(span)) {
			return []byte(span), nil
		}
	}
	return nil, fmt.Errorf("%w: no JSON document in response", ErrResponseMalformed)
}

// ParseClassification builds a success record from response content. The
// record is keyed by caseID whatever the response claims. Missing
// categories are empty, missing confidence is 0, and confidence outside
// [0,1] is clamped. Tags are trusted, not checked against the taxonomy.
func ParseClassification(caseID, content string) (model.Record, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return model.Record{}, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Record{}, fmt.Errorf("%w: JSON decode error: %w", ErrResponseMalformed, err)
	}

	rec := model.NewRecord(caseID)
	for _, cat := range model.Categories {
		v, ok := doc[cat]
		if !ok {
			continue
		}
		tags, err := decodeTags(v)
		if err != nil {
			return model.Record{}, fmt.Errorf("%w: %s: %w", ErrResponseMalformed, cat, err)
		}
		rec.Tags[cat] = tags
	}
	if v, ok := doc["confidence_score"]; ok {
		rec.Confidence = decodeConfidence(v)
	}
	if v, ok := doc["notes"]; ok {
		var notes string
		if json.Unmarshal(v, &notes) == nil {
			rec.Notes = notes
		}
	}
	return rec, nil
}

// decodeTags accepts a list of strings, a single string or null. Commas
// inside a tag would corrupt the persisted cell, so they are replaced.
func decodeTags(v json.RawMessage) ([]string, error) {
	var list []any
	if err := json.Unmarshal(v, &list); err != nil {
		var one *string
		if err := json.Unmarshal(v, &one); err != nil {
			return nil, errors.New("tags must be a list of strings")
		}
		if one == nil {
			return []string{}, nil
		}
		list = []any{*one}
	}
	out := make([]string, 0, len(list))
	seen := map[string]struct{}{}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("tag %v is not a string", item)
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ";"))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func decodeConfidence(v json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return 0
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}

// ParseDiscovery parses a discovered taxonomy. A document naming none of
// the fixed categories is rejected.
func ParseDiscovery(content string) (*taxonomy.Taxonomy, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	tx, err := taxonomy.ParseLenient(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseMalformed, err)
	}
	for _, cat := range model.Categories {
		if _, ok := tx.Category(cat); ok {
			return tx, nil
		}
	}
	return nil, fmt.Errorf("%w: discovered schema has none of the expected categories", ErrResponseMalformed)
}
