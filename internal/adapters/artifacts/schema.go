package artifacts

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/pkg/metrics"
)

// SchemaStore owns one curated taxonomy file.
type SchemaStore struct {
	fs   billy.Filesystem
	path string
}

// NewSchemaStore creates a SchemaStore for the taxonomy at p.
func NewSchemaStore(fs billy.Filesystem, p string) *SchemaStore {
	return &SchemaStore{fs: fs, path: p}
}

// Path returns the taxonomy file location.
func (s *SchemaStore) Path() string { return s.path }

// BackupPath returns where the previous taxonomy is kept before a mutation:
// <stem>_backup.json beside the schema file.
func (s *SchemaStore) BackupPath() string {
	dir, file := path.Split(s.path)
	stem := strings.TrimSuffix(file, path.Ext(file))
	return dir + stem + "_backup.json"
}

// Load reads and parses the taxonomy.
func (s *SchemaStore) Load() (*taxonomy.Taxonomy, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return taxonomy.Parse(data)
}

func (s *SchemaStore) read() ([]byte, error) {
	found, err := exists(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", taxonomy.ErrSchemaNotFound, s.path)
	}
	return util.ReadFile(s.fs, s.path)
}

// Save atomically replaces the taxonomy file.
func (s *SchemaStore) Save(tx *taxonomy.Taxonomy) error {
	data, err := tx.Encode()
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.fs, s.path, data); err != nil {
		metrics.RecordArtifactWrite(KindSchema, "error")
		return err
	}
	metrics.RecordArtifactWrite(KindSchema, "ok")
	return nil
}

// Merge adds observed tags missing from the stored taxonomy. When anything
// changes the previous bytes are first written to BackupPath, then the
// schema is replaced. A merge with nothing new touches no file.
func (s *SchemaStore) Merge(observed map[string][]string) (taxonomy.ChangeLog, error) {
	before, err := s.read()
	if err != nil {
		return nil, err
	}
	tx, err := taxonomy.Parse(before)
	if err != nil {
		return nil, err
	}

	merged, changes := tx.MergeNewTags(observed)
	if changes.Empty() {
		return changes, nil
	}

	if err := WriteFileAtomic(s.fs, s.BackupPath(), before); err != nil {
		return nil, fmt.Errorf("backup %s: %w", s.BackupPath(), err)
	}
	if err := s.Save(merged); err != nil {
		return nil, err
	}
	for cat, tags := range changes {
		metrics.RecordTaxonomyTagsAdded(cat, len(tags))
	}
	return changes, nil
}
