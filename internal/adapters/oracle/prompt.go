package oracle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
)

const classificationRules = `CLASSIFICATION RULES:
1. Use ONLY the specific values from within the subcategory lists, NOT the subcategory names
2. For each main category, select ALL applicable specific values
3. Each field can have 0 or more applicable values as a list
4. If no specific values fit for a main category, use empty list []
5. Be comprehensive - a case can have multiple applicable values per category
6. confidence_score should be 0.0-1.0 based on case clarity
7. Add notes about reasoning, unique aspects, or uncertainty`

// ClassificationPrompt renders the prompt for one case: identity, narrative,
// the hierarchical taxonomy, its flattened values, the response shape, the
// rules and optional curator instructions.
func ClassificationPrompt(c model.Case, tx *taxonomy.Taxonomy, instructions string) (string, error) {
	if tx == nil {
		return "", errors.New("no taxonomy")
	}
	hier, err := tx.Encode()
	if err != nil {
		return "", fmt.Errorf("encode taxonomy: %w", err)
	}
	flat, err := encodeFlat(tx)
	if err != nil {
		return "", fmt.Errorf("encode values: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze this case and classify it using the provided hierarchical schema.\n\n")
	fmt.Fprintf(&b, "CASE ID: %s\nCASE DESCRIPTION: %s\n\n", c.ID, c.Narrative)
	b.WriteString("FULL HIERARCHICAL SCHEMA:\n")
	b.Write(hier)
	b.WriteString("\nFLATTENED VALUES FOR REFERENCE:\n")
	b.Write(flat)
	b.WriteString("\n\nThe schema has main categories, each with subcategories containing specific values.\n")
	b.WriteString("Select specific values from the lists, not the subcategory names.\n\n")
	b.WriteString("Classify this case using the following JSON format:\n\n")
	b.WriteString(responseShape(c.ID))
	b.WriteString("\n\n")
	b.WriteString(classificationRules)
	if instructions != "" {
		b.WriteString("\n\nADDITIONAL GUIDANCE:\n")
		b.WriteString(instructions)
	}
	b.WriteString("\n\nReturn only the JSON response.\n")
	return b.String(), nil
}

func responseShape(caseID string) string {
	id, _ := json.Marshal(caseID)
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "    \"case_id\": %s,\n", id)
	for _, cat := range model.Categories {
		fmt.Fprintf(&b, "    %q: [\"specific values from %s subcategory lists\"],\n", cat, cat)
	}
	b.WriteString("    \"confidence_score\": 0.85,\n")
	b.WriteString("    \"notes\": \"any additional observations about this case\"\n}")
	return b.String()
}

// encodeFlat renders the flattened values in taxonomy order.
func encodeFlat(tx *taxonomy.Taxonomy) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fc := range tx.FlattenOrdered() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fc.Name)
		if err != nil {
			return nil, err
		}
		tags := fc.Tags
		if tags == nil {
			tags = []string{}
		}
		vals, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DiscoveryPrompt asks for a first taxonomy covering the fixed categories,
// as flat lists of snake_case values.
func DiscoveryPrompt(cases []model.Case) string {
	var b strings.Builder
	b.WriteString("You are analyzing case narratives to create a classification taxonomy. Here are sample cases:\n\n")
	for i, c := range cases {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "CASE %d:\nCase ID: %s\nDescription: %s", i+1, c.ID, c.Narrative)
	}
	b.WriteString("\n\nBased on these cases, create a comprehensive classification schema with these exact keys:\n\n")
	for i, cat := range model.Categories {
		fmt.Fprintf(&b, "%d. %q\n", i+1, cat)
	}
	b.WriteString("\nFor each key, provide a list of relevant values that could apply across different cases. Make the values:\n")
	b.WriteString("- Specific enough to be useful for analysis\n")
	b.WriteString("- General enough to apply to multiple cases\n")
	b.WriteString("- Use snake_case formatting (e.g., \"fake_investment_platform\")\n\n")
	b.WriteString("Return ONLY a valid JSON object with the schema. No additional text.\n\n")
	b.WriteString("Example structure:\n{\n")
	fmt.Fprintf(&b, "    %q: [\"investment_scam\", \"job_fraud\", ...],\n", model.Categories[0])
	fmt.Fprintf(&b, "    %q: [\"phishing_link\", \"malicious_app\", ...],\n", model.Categories[1])
	b.WriteString("    ...\n}\n")
	return b.String()
}
