// Package worker dispatches batches of cases to the oracle with bounded
// concurrency.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/pkg/logger"
	"github.com/okian/casetag/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultConcurrency = 3
	defaultMaxRetries  = 3
	defaultBackoff     = time.Second
	maxBackoff         = 30 * time.Second
)

// Classifier classifies one case. Implementations return exactly one record
// and report failures as error records.
type Classifier interface {
	Classify(ctx context.Context, c model.Case, tx *taxonomy.Taxonomy) model.Record
}

// Pool runs batches through a Classifier.
type Pool struct {
	classifier  Classifier
	concurrency int
	maxRetries  int
	backoff     time.Duration
	name        string
	sleep       func(time.Duration)

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(classifier Classifier, opts ...Option) *Pool {
	p := &Pool{
		classifier:  classifier,
		concurrency: defaultConcurrency,
		maxRetries:  defaultMaxRetries,
		backoff:     defaultBackoff,
		name:        "dispatcher",
		sleep:       time.Sleep,
		logger:      logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Concurrency returns the in-flight call limit.
func (p *Pool) Concurrency() int { return p.concurrency }

// Dispatch classifies every case and returns one record per case, in input
// order. The batch runs to completion even if ctx is cancelled; callers stop
// between batches. Each call still gets its own deadline from the classifier.
func (p *Pool) Dispatch(ctx context.Context, cases []model.Case, tx *taxonomy.Taxonomy) []model.Record {
	start := time.Now()
	batchCtx := context.WithoutCancel(ctx)
	records := make([]model.Record, len(cases))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range cases {
		g.Go(func() error {
			records[i] = p.process(batchCtx, cases[i], tx)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range records {
		metrics.RecordClassification(string(r.Status), string(r.Failure))
	}
	metrics.RecordBatch(float64(time.Since(start).Milliseconds()))
	return records
}

// process classifies one case with retries, converting panics into an
// internal error record.
func (p *Pool) process(ctx context.Context, c model.Case, tx *taxonomy.Taxonomy) (rec model.Record) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent(p.name, "panic")
			p.logger.Error(ctx, "classifier panicked", logger.CaseID(c.ID), logger.Any("panic", r))
			rec = model.ErrorRecord(c.ID, model.FailureInternal, fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	for attempt := 0; ; attempt++ {
		rec = p.classifier.Classify(ctx, c, tx)
		if rec.CaseID != c.ID {
			rec.CaseID = c.ID
		}
		if !rec.IsError() || !retryable(rec.Failure) || attempt >= p.maxRetries {
			return rec
		}
		wait := p.backoffFor(attempt)
		metrics.RecordOracleRetry()
		p.logger.Warn(ctx, "retrying case",
			logger.CaseID(c.ID),
			logger.String("failure", string(rec.Failure)),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", wait),
		)
		p.sleep(wait)
	}
}

func (p *Pool) backoffFor(attempt int) time.Duration {
	d := p.backoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func retryable(kind model.FailureKind) bool {
	return kind == model.FailureRateLimited || kind == model.FailureNetwork
}
