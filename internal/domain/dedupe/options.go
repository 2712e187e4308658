package dedupe

import "strings"

// Option applies a configuration option to the ExclusionSet.
type Option func(*ExclusionSet)

// WithIDs seeds the set. Blank ids are ignored.
func WithIDs(ids ...string) Option {
	return func(s *ExclusionSet) {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				s.seen[id] = struct{}{}
			}
		}
	}
}
