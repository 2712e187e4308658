package taxonomy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// envelopeKey wraps the schema in curated files: {"schema": {...}}.
const envelopeKey = "schema"

// member is one key/value of a JSON object, in document order.
type member struct {
	key string
	val any
}

type object []member

// Parse decodes a taxonomy document. Accepted shapes, all normalized into the
// canonical form:
//
//	{"schema": {...}}                        envelope, unwrapped
//	{"cat": {"sub": ["tag", ...]}}           canonical
//	{"cat": ["tag", ...]}                    flat list, stored under "general"
//	{"cat": {"sub": "tag"}}                  lone string, one-element list
//
// A tag repeated within a category is rejected.
func Parse(data []byte) (*Taxonomy, error) {
	return parse(data, true)
}

// ParseLenient is Parse for oracle-authored documents: repeated tags within a
// category are dropped instead of rejected.
func ParseLenient(data []byte) (*Taxonomy, error) {
	return parse(data, false)
}

func parse(data []byte, strict bool) (*Taxonomy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrSchemaMalformed)
	}

	obj, ok := root.(object)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be an object", ErrSchemaMalformed)
	}

	t := &Taxonomy{}
	if inner, found := obj.get(envelopeKey); found {
		innerObj, ok := inner.(object)
		if !ok {
			return nil, fmt.Errorf("%w: %q envelope must hold an object", ErrSchemaMalformed, envelopeKey)
		}
		obj = innerObj
		t.enveloped = true
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrSchemaMalformed)
	}

	for _, m := range obj {
		name := strings.TrimSpace(m.key)
		if name == "" {
			return nil, fmt.Errorf("%w: blank category name", ErrSchemaMalformed)
		}
		if t.indexOf(name) >= 0 {
			return nil, fmt.Errorf("%w: category %q appears twice", ErrSchemaMalformed, name)
		}
		cat, err := parseCategory(name, m.val, strict)
		if err != nil {
			return nil, err
		}
		t.categories = append(t.categories, cat)
	}
	return t, nil
}

func parseCategory(name string, v any, strict bool) (Category, error) {
	cat := Category{Name: name}
	seen := map[string]struct{}{}

	add := func(sub string, raw any) error {
		tags, err := parseTags(raw)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrSchemaMalformed, name, sub, err)
		}
		kept := make([]string, 0, len(tags))
		for _, tag := range tags {
			if _, dup := seen[tag]; dup {
				if strict {
					return fmt.Errorf("%w: %w %q in category %q", ErrSchemaMalformed, ErrDuplicateTag, tag, name)
				}
				continue
			}
			seen[tag] = struct{}{}
			kept = append(kept, tag)
		}
		cat.Subcategories = append(cat.Subcategories, Subcategory{Name: sub, Tags: kept})
		return nil
	}

	switch val := v.(type) {
	case object:
		for _, m := range val {
			if err := add(m.key, m.val); err != nil {
				return Category{}, err
			}
		}
	case []any:
		if err := add(GeneralSubcategory, val); err != nil {
			return Category{}, err
		}
	default:
		return Category{}, fmt.Errorf("%w: category %q must be an object or a list", ErrSchemaMalformed, name)
	}
	return cat, nil
}

func parseTags(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		if t := strings.TrimSpace(val); t != "" {
			return []string{t}, nil
		}
		return []string{}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tag %v is not a string", item)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, errors.New("tags must be a list or a string")
	}
}

func (o object) get(key string) (any, bool) {
	for _, m := range o {
		if m.key == key {
			return m.val, true
		}
	}
	return nil, false
}

// decodeValue reads one JSON value keeping object key order.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		var obj object
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{key: key, val: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		if obj == nil {
			obj = object{}
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// Encode renders the taxonomy as indented JSON in its own order, restoring
// the envelope when the source had one.
func (t *Taxonomy) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if t.enveloped {
		buf.WriteString(`{"` + envelopeKey + `":`)
	}
	buf.WriteByte('{')
	for i, c := range t.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, s := range c.Subcategories {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(&buf, s.Name); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			tags := s.Tags
			if tags == nil {
				tags = []string{}
			}
			raw, err := json.Marshal(tags)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	if t.enveloped {
		buf.WriteByte('}')
	}

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// MarshalJSON implements json.Marshaler with ordered, compact output.
func (t *Taxonomy) MarshalJSON() ([]byte, error) {
	indented, err := t.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, indented); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}
