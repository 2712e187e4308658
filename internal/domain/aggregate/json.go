package aggregate

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// MarshalJSON renders {category: {total_cases, cases_with_tags, unique_tags,
// tag_distribution: {tag: {count, percentage}}}} keeping category order and
// the descending-percentage tag order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Category); err != nil {
			return nil, err
		}
		buf.WriteString(`{"total_cases":` + strconv.Itoa(c.TotalCases))
		buf.WriteString(`,"cases_with_tags":` + strconv.Itoa(c.CasesWithTags))
		buf.WriteString(`,"unique_tags":` + strconv.Itoa(c.UniqueTags))
		buf.WriteString(`,"tag_distribution":{`)
		for j, s := range c.Distribution {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, s.Tag); err != nil {
				return nil, err
			}
			buf.WriteString(`{"count":` + strconv.Itoa(s.Count))
			buf.WriteString(`,"percentage":` + strconv.FormatFloat(s.Percentage, 'f', -1, 64) + `}`)
		}
		buf.WriteString(`}}`)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the report as indented JSON.
func (r Report) Encode() ([]byte, error) {
	raw, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte(':')
	return nil
}
