package oracle

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/pkg/metrics"
)

// Default simulated oracle configuration.
const (
	defaultSimMinLatency = 80 * time.Millisecond
	defaultSimMaxLatency = 150 * time.Millisecond
	defaultSimSeed       = 42
	simBaseConfidence    = 0.3
	simConfidenceStep    = 0.1
	simMaxConfidence     = 0.95
)

// SimulatedOption applies a configuration option to the Simulated oracle.
type SimulatedOption func(*Simulated)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed seeds the latency generator.
func WithSeed(seed int64) SimulatedOption {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible latency, not security
	}
}

// WithFailure makes Classify fail for caseID with the given kind.
func WithFailure(caseID string, kind model.FailureKind) SimulatedOption {
	return func(s *Simulated) {
		s.failures[caseID] = kind
	}
}

// WithDiscoveredSchema makes DiscoverSchema return tx instead of the fallback.
func WithDiscoveredSchema(tx *taxonomy.Taxonomy) SimulatedOption {
	return func(s *Simulated) {
		s.discovered = tx
	}
}

// Simulated is an offline Classifier for dry runs and tests. A tag is chosen
// when every underscore-separated word of it occurs in the narrative.
type Simulated struct {
	mu         sync.Mutex
	rng        *rand.Rand
	minLatency time.Duration
	maxLatency time.Duration
	failures   map[string]model.FailureKind
	discovered *taxonomy.Taxonomy
	calls      int
}

var _ Classifier = (*Simulated)(nil)

// NewSimulated creates a simulated oracle.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		rng:        rand.New(rand.NewSource(defaultSimSeed)), //nolint:gosec // reproducible latency, not security
		minLatency: defaultSimMinLatency,
		maxLatency: defaultSimMaxLatency,
		failures:   map[string]model.FailureKind{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls returns how many outbound calls were simulated.
func (s *Simulated) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Simulated) wait(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		latency += time.Duration(s.rng.Int63n(int64(span)))
	}
	s.mu.Unlock()

	if latency == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	case <-t.C:
		return nil
	}
}

// Classify implements Classifier.
func (s *Simulated) Classify(ctx context.Context, c model.Case, tx *taxonomy.Taxonomy) model.Record {
	if strings.TrimSpace(c.Narrative) == "" {
		metrics.RecordOracleRequest("simulated", string(model.FailureInvalidInput))
		return model.ErrorRecord(c.ID, model.FailureInvalidInput, ErrInvalidInput.Error()+": empty case description")
	}
	if err := s.wait(ctx); err != nil {
		metrics.RecordOracleRequest("simulated", string(model.FailureNetwork))
		return model.ErrorRecord(c.ID, model.FailureNetwork, err.Error())
	}

	s.mu.Lock()
	kind, fail := s.failures[c.ID]
	s.mu.Unlock()
	if fail {
		metrics.RecordOracleRequest("simulated", string(kind))
		return model.ErrorRecord(c.ID, kind, "simulated "+string(kind)+" failure")
	}

	words := wordSet(c.Narrative)
	rec := model.NewRecord(c.ID)
	matched := 0
	if tx != nil {
		for _, fc := range tx.FlattenOrdered() {
			if !model.IsCategory(fc.Name) {
				continue
			}
			for _, tag := range fc.Tags {
				if tagMatches(tag, words) {
					rec.Tags[fc.Name] = append(rec.Tags[fc.Name], tag)
					matched++
				}
			}
		}
	}
	rec.Confidence = simBaseConfidence
	if matched > 0 {
		rec.Confidence = min(simMaxConfidence, 0.5+simConfidenceStep*float64(matched-1))
	}
	rec.Notes = fmt.Sprintf("simulated classification, %d tags matched", matched)
	metrics.RecordOracleRequest("simulated", "ok")
	return rec
}

// DiscoverSchema implements Classifier.
func (s *Simulated) DiscoverSchema(ctx context.Context, _ []model.Case) *taxonomy.Taxonomy {
	if err := s.wait(ctx); err != nil || s.discovered == nil {
		metrics.RecordSchemaDiscovery("fallback")
		return taxonomy.Fallback()
	}
	metrics.RecordSchemaDiscovery("discovered")
	return s.discovered.Clone()
}

func wordSet(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[w] = struct{}{}
	}
	return out
}

func tagMatches(tag string, words map[string]struct{}) bool {
	parts := strings.FieldsFunc(strings.ToLower(tag), func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if _, ok := words[p]; !ok {
			return false
		}
	}
	return true
}
