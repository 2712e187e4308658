package repository

import "github.com/okian/casetag/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithRecords seeds the store, later records replacing earlier ones.
func WithRecords(records ...model.Record) Option {
	return func(s *MemoryStore) {
		for _, r := range records {
			s.put(r)
		}
	}
}
