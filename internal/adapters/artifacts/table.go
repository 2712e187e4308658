package artifacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/casetag/internal/domain/merge"
)

// EncodeTable renders a table as CSV with a header row.
func EncodeTable(t merge.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTable parses CSV with a header row. Rows may be ragged; short rows
// are padded to the header width.
func DecodeTable(r io.Reader) (merge.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return merge.Table{}, fmt.Errorf("%w: empty table", ErrMalformed)
		}
		return merge.Table{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	t := merge.Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return merge.Table{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
