// Package corpus reads the case table an iteration samples from.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/okian/casetag/internal/adapters/artifacts"
	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/internal/domain/model"
)

// Sentinel kinds for corpus errors.
var (
	ErrNotFound      = errors.New("corpus not found")
	ErrMissingColumn = errors.New("corpus column missing")
)

// Load reads a CSV corpus from fs. The Case and Gist columns are required;
// every other column is carried through to the output.
func Load(fs billy.Filesystem, path string) (*model.Corpus, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	t, err := artifacts.DecodeTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c, err := FromTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FromTable builds a corpus from a decoded table.
func FromTable(t merge.Table) (*model.Corpus, error) {
	idCol, gistCol := t.Column(model.ColumnCase), t.Column(model.ColumnGist)
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, model.ColumnCase)
	}
	if gistCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, model.ColumnGist)
	}

	cases := make([]model.Case, 0, len(t.Rows))
	for _, row := range t.Rows {
		if isEmptyRow(row) {
			continue
		}
		cases = append(cases, model.Case{
			ID:        strings.TrimSpace(row[idCol]),
			Narrative: strings.TrimSpace(row[gistCol]),
			Values:    row,
		})
	}
	return model.NewCorpus(t.Header, cases)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
