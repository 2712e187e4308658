// Package oracle classifies cases by calling an external language model.
//
// An Oracle owns prompting, response parsing, timeouts and failure mapping;
// the provider-specific wire format sits behind Transport. Classify never
// returns an error: every failure becomes an error record.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/pkg/logger"
	"github.com/okian/casetag/pkg/metrics"
)

// Classifier turns cases into records.
type Classifier interface {
	// Classify returns exactly one record for c.
	Classify(ctx context.Context, c model.Case, tx *taxonomy.Taxonomy) model.Record
	// DiscoverSchema proposes a taxonomy from sample cases, falling back to
	// taxonomy.Fallback on any failure.
	DiscoverSchema(ctx context.Context, cases []model.Case) *taxonomy.Taxonomy
}

// Params are the sampling parameters of one completion.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Transport performs one completion against a provider.
type Transport interface {
	Name() string
	Complete(ctx context.Context, prompt string, p Params) (string, error)
}

// Default request settings.
const (
	defaultRequestTimeout   = 120 * time.Second
	defaultDiscoveryTimeout = 60 * time.Second
	defaultMaxTokens        = 1000
	defaultDiscoveryTokens  = 2000
	defaultTemperature      = 0.1
	defaultDiscoveryTemp    = 0.3
	defaultDiscoverySample  = 10
)

// Option configures an Oracle.
type Option func(*Oracle)

// WithTimeouts sets the per-call timeouts for classification and discovery.
func WithTimeouts(request, discovery time.Duration) Option {
	return func(o *Oracle) {
		if request > 0 {
			o.requestTimeout = request
		}
		if discovery > 0 {
			o.discoveryTimeout = discovery
		}
	}
}

// WithClassifyParams sets the sampling parameters of classification calls.
func WithClassifyParams(p Params) Option {
	return func(o *Oracle) {
		if p.MaxTokens > 0 {
			o.classify = p
		}
	}
}

// WithDiscoveryParams sets the sampling parameters of discovery calls.
func WithDiscoveryParams(p Params) Option {
	return func(o *Oracle) {
		if p.MaxTokens > 0 {
			o.discovery = p
		}
	}
}

// WithDiscoverySample bounds how many cases are shown to discovery.
func WithDiscoverySample(n int) Option {
	return func(o *Oracle) {
		if n > 0 {
			o.discoverySample = n
		}
	}
}

// WithInstructions appends curator guidance to every classification prompt.
func WithInstructions(text string) Option {
	return func(o *Oracle) {
		o.instructions = strings.TrimSpace(text)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.log = l
		}
	}
}

// Oracle is the Classifier backed by a Transport.
type Oracle struct {
	transport        Transport
	requestTimeout   time.Duration
	discoveryTimeout time.Duration
	classify         Params
	discovery        Params
	discoverySample  int
	instructions     string
	log              logger.Logger
}

var _ Classifier = (*Oracle)(nil)

// New creates an Oracle over t.
func New(t Transport, opts ...Option) *Oracle {
	o := &Oracle{
		transport:        t,
		requestTimeout:   defaultRequestTimeout,
		discoveryTimeout: defaultDiscoveryTimeout,
		classify:         Params{MaxTokens: defaultMaxTokens, Temperature: defaultTemperature},
		discovery:        Params{MaxTokens: defaultDiscoveryTokens, Temperature: defaultDiscoveryTemp},
		discoverySample:  defaultDiscoverySample,
		log:              logger.Get().Named("oracle"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Classify runs one classification call for c.
func (o *Oracle) Classify(ctx context.Context, c model.Case, tx *taxonomy.Taxonomy) model.Record {
	if strings.TrimSpace(c.Narrative) == "" {
		return o.fail(ctx, c.ID, fmt.Errorf("%w: empty case description", ErrInvalidInput))
	}
	prompt, err := ClassificationPrompt(c, tx, o.instructions)
	if err != nil {
		return o.fail(ctx, c.ID, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	content, err := o.complete(ctx, o.requestTimeout, prompt, o.classify)
	if err != nil {
		return o.fail(ctx, c.ID, err)
	}
	rec, err := ParseClassification(c.ID, content)
	if err != nil {
		return o.fail(ctx, c.ID, err)
	}
	return rec
}

// DiscoverSchema asks the provider for a taxonomy over the first sample cases.
func (o *Oracle) DiscoverSchema(ctx context.Context, cases []model.Case) *taxonomy.Taxonomy {
	if len(cases) > o.discoverySample {
		cases = cases[:o.discoverySample]
	}
	content, err := o.complete(ctx, o.discoveryTimeout, DiscoveryPrompt(cases), o.discovery)
	if err == nil {
		var tx *taxonomy.Taxonomy
		if tx, err = ParseDiscovery(content); err == nil {
			metrics.RecordSchemaDiscovery("discovered")
			o.log.Info(ctx, "schema discovered", logger.Int("categories", len(tx.Categories())), logger.Int("tags", tx.TagCount()))
			return tx
		}
	}
	metrics.RecordSchemaDiscovery("fallback")
	o.log.Warn(ctx, "schema discovery failed, using fallback", logger.Error(err))
	return taxonomy.Fallback()
}

func (o *Oracle) complete(ctx context.Context, timeout time.Duration, prompt string, p Params) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider := o.transport.Name()
	start := time.Now()
	content, err := o.transport.Complete(callCtx, prompt, p)
	metrics.RecordOracleLatency(provider, float64(time.Since(start).Milliseconds()))
	if err != nil {
		if callCtx.Err() != nil && FailureKind(err) == model.FailureAPI {
			err = fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		metrics.RecordOracleRequest(provider, string(FailureKind(err)))
		return "", err
	}
	metrics.RecordOracleRequest(provider, "ok")
	return content, nil
}

func (o *Oracle) fail(ctx context.Context, caseID string, err error) model.Record {
	kind := FailureKind(err)
	fields := []logger.Field{logger.CaseID(caseID), logger.String("failure", string(kind)), logger.Error(err)}
	if kind == model.FailureRateLimited {
		o.log.Warn(ctx, "classification failed", fields...)
	} else {
		o.log.Error(ctx, "classification failed", fields...)
	}
	return model.ErrorRecord(caseID, kind, err.Error())
}
