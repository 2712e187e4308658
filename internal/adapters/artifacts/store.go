// Package artifacts persists iteration state on a billy filesystem: the
// progress table, the checkpoint, the finalized output and the discovered
// schema. Every write goes through WriteFileAtomic.
package artifacts

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/internal/domain/types"
	"github.com/okian/casetag/pkg/metrics"
)

// Artifact kinds, also used as metric labels.
const (
	KindProgress   = "progress"
	KindCheckpoint = "checkpoint"
	KindOutput     = "classified"
	KindSchema     = "schema"
)

// Store reads and writes the artifacts of named iterations under one
// directory.
type Store struct {
	fs  billy.Filesystem
	dir string
}

// Option configures a Store.
type Option func(*Store)

// WithDir roots artifacts in dir instead of the filesystem root.
func WithDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.dir = dir
		}
	}
}

// NewStore creates a Store over fs.
func NewStore(fs billy.Filesystem, opts ...Option) *Store {
	s := &Store{fs: fs, dir: "."}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FS returns the underlying filesystem.
func (s *Store) FS() billy.Filesystem { return s.fs }

// Path returns the location of an artifact kind for iteration name.
func (s *Store) Path(kind, name string) string {
	ext := ".csv"
	if kind == KindCheckpoint || kind == KindSchema {
		ext = ".json"
	}
	return path.Join(s.dir, kind+"_"+name+ext)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) write(kind, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.fs, s.Path(kind, name), data); err != nil {
		metrics.RecordArtifactWrite(kind, "error")
		return err
	}
	metrics.RecordArtifactWrite(kind, "ok")
	return nil
}

// WriteProgress replaces the progress table of name.
func (s *Store) WriteProgress(name string, t merge.Table) error {
	data, err := EncodeTable(t)
	if err != nil {
		return err
	}
	return s.write(KindProgress, name, data)
}

// ReadProgress loads the progress table of name. ok is false when none exists.
func (s *Store) ReadProgress(name string) (t merge.Table, ok bool, err error) {
	if err := validName(name); err != nil {
		return merge.Table{}, false, err
	}
	return s.ReadTable(s.Path(KindProgress, name))
}

// ReadTable loads any CSV table on the store's filesystem. ok is false when
// the file does not exist.
func (s *Store) ReadTable(p string) (t merge.Table, ok bool, err error) {
	found, err := exists(s.fs, p)
	if err != nil || !found {
		return merge.Table{}, false, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return merge.Table{}, false, err
	}
	defer f.Close()
	t, err = DecodeTable(f)
	if err != nil {
		return merge.Table{}, false, fmt.Errorf("%s: %w", p, err)
	}
	return t, true, nil
}

// WriteCheckpoint replaces the checkpoint of name.
func (s *Store) WriteCheckpoint(name string, cp types.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return s.write(KindCheckpoint, name, append(data, '\n'))
}

// ReadCheckpoint loads the checkpoint of name.
func (s *Store) ReadCheckpoint(name string) (types.Checkpoint, error) {
	var cp types.Checkpoint
	if err := validName(name); err != nil {
		return cp, err
	}
	p := s.Path(KindCheckpoint, name)
	found, err := exists(s.fs, p)
	if err != nil {
		return cp, err
	}
	if !found {
		return cp, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return cp, err
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("%w: %s: %w", ErrMalformed, p, err)
	}
	return cp, nil
}

// WriteOutput writes the finalized output table of name.
func (s *Store) WriteOutput(name string, t merge.Table) error {
	data, err := EncodeTable(t)
	if err != nil {
		return err
	}
	return s.write(KindOutput, name, data)
}

// WriteSchema persists a discovered taxonomy for name.
func (s *Store) WriteSchema(name string, tx *taxonomy.Taxonomy) error {
	data, err := tx.Encode()
	if err != nil {
		return err
	}
	return s.write(KindSchema, name, data)
}

// ReadSchema loads the taxonomy persisted for name. ok is false when none
// exists.
func (s *Store) ReadSchema(name string) (tx *taxonomy.Taxonomy, ok bool, err error) {
	if err := validName(name); err != nil {
		return nil, false, err
	}
	p := s.Path(KindSchema, name)
	found, err := exists(s.fs, p)
	if err != nil || !found {
		return nil, false, err
	}
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, false, err
	}
	tx, err = taxonomy.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", p, err)
	}
	return tx, true, nil
}

// RemoveProgress deletes the progress table and checkpoint of name. Missing
// files are not an error.
func (s *Store) RemoveProgress(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	for _, kind := range []string{KindProgress, KindCheckpoint} {
		p := s.Path(kind, name)
		found, err := exists(s.fs, p)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := s.fs.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Exists reports whether an artifact kind exists for name.
func (s *Store) Exists(kind, name string) bool {
	ok, err := exists(s.fs, s.Path(kind, name))
	return err == nil && ok
}
