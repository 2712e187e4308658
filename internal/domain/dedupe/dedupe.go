// Package dedupe tracks case identifiers that must not be sampled again:
// cases covered by earlier iterations and cases already processed in the
// current one.
package dedupe

import (
	"context"
	"slices"
	"sync"
)

// Exclusions is the read side of an exclusion set: the ids a sampler must skip.
type Exclusions interface {
	// Contains reports whether id is excluded.
	Contains(id string) bool
	// IDs returns the excluded ids in sorted order.
	IDs() []string
}

// ExclusionSet is the in-memory Exclusions. It never evicts: forgetting an
// excluded id would let a case be sampled twice.
type ExclusionSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewExclusionSet creates a set with configuration options.
func NewExclusionSet(opts ...Option) *ExclusionSet {
	s := &ExclusionSet{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeenAndRecord reports whether id was already recorded, recording it if not.
func (s *ExclusionSet) SeenAndRecord(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// Contains implements Exclusions.
func (s *ExclusionSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// IDs implements Exclusions.
func (s *ExclusionSet) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.seen))
	for id := range s.seen {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Size returns the number of recorded ids.
func (s *ExclusionSet) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.seen))
}

// Union returns a new set holding the ids of s and other.
func (s *ExclusionSet) Union(other Exclusions) *ExclusionSet {
	out := NewExclusionSet(WithIDs(s.IDs()...))
	if other != nil {
		for _, id := range other.IDs() {
			out.SeenAndRecord(context.Background(), id)
		}
	}
	return out
}
