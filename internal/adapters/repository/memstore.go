package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/okian/casetag/internal/domain/model"
)

// MemoryStore is a mutex-guarded, insertion-ordered Store.
type MemoryStore struct {
	mu      sync.RWMutex
	index   map[string]int
	records []model.Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{index: map[string]int{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, rec model.Record) error {
	if strings.TrimSpace(rec.CaseID) == "" {
		return ErrBlankCaseID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(rec)
	return nil
}

func (s *MemoryStore) put(rec model.Record) {
	rec = rec.Clone()
	if i, ok := s.index[rec.CaseID]; ok {
		s.records[i] = rec
		return
	}
	s.index[rec.CaseID] = len(s.records)
	s.records = append(s.records, rec)
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, caseID string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[caseID]
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return s.records[i].Clone(), nil
}

// Has implements Store.
func (s *MemoryStore) Has(_ context.Context, caseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[caseID]
	return ok
}

// Records implements Store.
func (s *MemoryStore) Records(_ context.Context) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// IDs implements Store.
func (s *MemoryStore) IDs(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.CaseID
	}
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = map[string]int{}
	s.records = nil
}
