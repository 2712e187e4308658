// Package service runs classification iterations: it resumes from persisted
// progress, samples cases, dispatches them in batches to the oracle, flushes
// progress after every batch and finalizes the iteration output.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/casetag/internal/adapters/artifacts"
	workerpool "github.com/okian/casetag/internal/adapters/mq/worker"
	"github.com/okian/casetag/internal/adapters/oracle"
	"github.com/okian/casetag/internal/adapters/repository"
	"github.com/okian/casetag/internal/domain/dedupe"
	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/internal/domain/types"
	"github.com/okian/casetag/pkg/logger"
	"github.com/okian/casetag/pkg/metrics"
)

// Dispatcher classifies one batch, returning one record per case in order.
type Dispatcher interface {
	Dispatch(ctx context.Context, cases []model.Case, tx *taxonomy.Taxonomy) []model.Record
}

// FailureHook inspects an error record. A non-nil error is systemic and
// aborts the iteration.
type FailureHook func(ctx context.Context, rec model.Record) error

// IterationRequest describes one iteration.
type IterationRequest struct {
	// Name keys the iteration artifacts.
	Name string
	// TargetSize is the total number of cases the iteration should hold,
	// including those recovered from progress.
	TargetSize int
	// Excluded are case ids never sampled, usually earlier iterations.
	Excluded dedupe.Exclusions
	// Taxonomy to classify against; nil triggers discovery.
	Taxonomy *taxonomy.Taxonomy
	// ResumeSource is a progress table to resume from instead of the
	// iteration's own progress artifact.
	ResumeSource string
}

// IterationResult is the finalized iteration.
type IterationResult struct {
	RunID      string
	Output     merge.Table
	OutputPath string
	Records    []model.Record
	Taxonomy   *taxonomy.Taxonomy
	// Excluded is the request exclusion set plus every processed case.
	Excluded   *dedupe.ExclusionSet
	Resumed    int
	Dispatched int
	Issues     []merge.Issue
}

// Service runs iterations. One iteration runs at a time.
type Service struct {
	mu sync.RWMutex

	// Core components
	classifier oracle.Classifier
	dispatcher Dispatcher
	artifacts  *artifacts.Store

	// Configuration
	batchSize           int
	concurrency         int
	maxRetries          int
	retryBackoff        time.Duration
	batchPause          time.Duration
	seed                int64
	discoverySample     int
	confidenceThreshold float64
	failureHook         FailureHook
	now                 func() time.Time

	// State
	running  bool
	progress types.Progress

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(classifier oracle.Classifier, store *artifacts.Store, opts ...Option) *Service {
	s := &Service{
		classifier:          classifier,
		artifacts:           store,
		batchSize:           5,
		concurrency:         3,
		maxRetries:          3,
		retryBackoff:        time.Second,
		batchPause:          2 * time.Second,
		seed:                42,
		discoverySample:     10,
		confidenceThreshold: 0.7,
		now:                 time.Now,
		progress:            types.Progress{Phase: types.PhaseIdle},
		logger:              logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.dispatcher == nil {
		s.dispatcher = workerpool.NewPool(classifier,
			workerpool.WithConcurrency(s.concurrency),
			workerpool.WithRetries(s.maxRetries, s.retryBackoff),
		)
	}
	return s
}

// Progress returns a snapshot of the current or last iteration.
func (s *Service) Progress() types.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Service) update(fn func(p *types.Progress)) {
	s.mu.Lock()
	fn(&s.progress)
	s.progress.UpdatedAt = unixSeconds(s.now())
	p := s.progress
	s.mu.Unlock()
	metrics.UpdateIterationProgress(p.Target, p.Processed, p.Remaining)
}

func (s *Service) setPhase(phase types.Phase) {
	s.update(func(p *types.Progress) { p.Phase = phase })
}

// run holds the state of one RunIteration call.
type run struct {
	id        string
	req       IterationRequest
	corpus    *model.Corpus
	results   repository.Store
	recovered map[string]model.Case
	resumed   int
	quota     int
	batches   int
	log       logger.Logger
}

// RunIteration runs one iteration to completion. Cancelling ctx stops the
// iteration at the next batch boundary: progress is flushed and ctx.Err()
// is returned. Rerunning with the same request resumes from that progress.
func (s *Service) RunIteration(ctx context.Context, corpus *model.Corpus, req IterationRequest) (*IterationResult, error) {
	if err := validate(corpus, req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.progress = types.Progress{Iteration: req.Name, Phase: types.PhaseIdle, Target: req.TargetSize}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	r := &run{
		id:        uuid.NewString(),
		req:       req,
		corpus:    corpus,
		results:   repository.NewMemoryStore(),
		recovered: map[string]model.Case{},
		log:       s.logger.With(logger.Iteration(req.Name)),
	}
	s.update(func(p *types.Progress) { p.RunID = r.id })

	res, err := s.runIteration(ctx, r)
	if err != nil {
		s.setPhase(types.PhaseFailed)
		return nil, err
	}
	s.setPhase(types.PhaseDone)
	return res, nil
}

func validate(corpus *model.Corpus, req IterationRequest) error {
	switch {
	case corpus == nil:
		return fmt.Errorf("%w: no corpus", ErrInvalidRequest)
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: blank iteration name", ErrInvalidRequest)
	case req.TargetSize < 0:
		return fmt.Errorf("%w: negative target size %d", ErrInvalidRequest, req.TargetSize)
	}
	return nil
}

func (s *Service) runIteration(ctx context.Context, r *run) (*IterationResult, error) {
	s.setPhase(types.PhaseResuming)
	if err := s.resume(ctx, r); err != nil {
		return nil, err
	}

	s.setPhase(types.PhaseSampling)
	sample := s.sample(ctx, r)
	r.quota = len(sample)
	r.batches = (len(sample) + s.batchSize - 1) / s.batchSize
	s.update(func(p *types.Progress) {
		p.AlreadyProcessed = r.resumed
		p.Processed = r.resumed
		p.Remaining = r.quota
		p.BatchesTotal = r.batches
	})
	r.log.Info(ctx, "iteration planned",
		logger.String("run_id", r.id),
		logger.Int("target", r.req.TargetSize),
		logger.Int("resumed", r.resumed),
		logger.Int("to_process", r.quota),
		logger.Int("batches", r.batches),
	)

	tx := r.req.Taxonomy
	if tx == nil {
		persisted, ok, err := s.artifacts.ReadSchema(r.req.Name)
		if err != nil {
			return nil, fmt.Errorf("load iteration schema: %w", err)
		}
		if ok {
			tx = persisted
			r.log.Info(ctx, "reusing persisted schema",
				logger.String("path", s.artifacts.Path(artifacts.KindSchema, r.req.Name)),
				logger.Int("tags", tx.TagCount()),
			)
		}
	}
	if len(sample) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, s.interrupt(ctx, r, 0, err)
		}
		if tx == nil {
			tx = s.discover(ctx, r, sample)
		}
		s.setPhase(types.PhaseSchemaReady)
		s.checkpoint(ctx, r, 0)

		if err := s.dispatch(ctx, r, sample, tx); err != nil {
			return nil, err
		}
	} else {
		r.log.Info(ctx, "nothing left to sample, finalizing recovered records")
	}

	return s.finalize(ctx, r, tx)
}

// resume loads persisted progress into the result store.
func (s *Service) resume(ctx context.Context, r *run) error {
	var (
		table merge.Table
		ok    bool
		err   error
	)
	if r.req.ResumeSource != "" {
		table, ok, err = s.artifacts.ReadTable(r.req.ResumeSource)
		if err == nil && !ok {
			r.log.Warn(ctx, "resume source not found, starting fresh", logger.String("path", r.req.ResumeSource))
		}
	} else {
		table, ok, err = s.artifacts.ReadProgress(r.req.Name)
	}
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if !ok {
		return nil
	}

	records, err := merge.RecordsFromTable(table)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	rows := map[string][]string{}
	idCol := table.Column(model.ColumnCase)
	for _, row := range table.Rows {
		if idCol < len(row) {
			rows[strings.TrimSpace(row[idCol])] = row
		}
	}
	for _, rec := range records {
		if err := r.results.Put(ctx, rec); err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if _, inCorpus := r.corpus.ByID(rec.CaseID); !inCorpus {
			r.recovered[rec.CaseID] = merge.CaseFromRow(r.corpus.Columns, table.Header, rows[rec.CaseID])
		}
	}
	r.resumed = len(records)
	r.log.Info(ctx, "resumed from progress", logger.Int("records", r.resumed))
	return nil
}

// sample picks the cases still to classify: eligible cases in corpus order,
// shuffled with the configured seed, truncated to the remaining quota.
func (s *Service) sample(ctx context.Context, r *run) []model.Case {
	eligible := make([]model.Case, 0, len(r.corpus.Cases))
	for _, c := range r.corpus.Cases {
		if r.req.Excluded != nil && r.req.Excluded.Contains(c.ID) {
			continue
		}
		if r.results.Has(ctx, c.ID) {
			continue
		}
		eligible = append(eligible, c)
	}

	quota := min(r.req.TargetSize-r.resumed, len(eligible))
	if quota <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(s.seed)) //nolint:gosec // reproducible sampling, not security
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	return eligible[:quota]
}

func (s *Service) discover(ctx context.Context, r *run, sample []model.Case) *taxonomy.Taxonomy {
	n := min(len(sample), s.discoverySample)
	r.log.Info(ctx, "discovering schema", logger.Int("cases", n))
	tx := s.classifier.DiscoverSchema(ctx, sample[:n])
	if err := s.artifacts.WriteSchema(r.req.Name, tx); err != nil {
		metrics.RecordErrorByComponent("service", "schema_write")
		r.log.Error(ctx, "failed to persist discovered schema", logger.Error(err))
	} else {
		r.log.Info(ctx, "schema saved", logger.String("path", s.artifacts.Path(artifacts.KindSchema, r.req.Name)))
	}
	return tx
}

func (s *Service) dispatch(ctx context.Context, r *run, sample []model.Case, tx *taxonomy.Taxonomy) error {
	done := 0
	for b := 0; b < r.batches; b++ {
		if err := ctx.Err(); err != nil {
			return s.interrupt(ctx, r, b, err)
		}

		lo, hi := b*s.batchSize, min((b+1)*s.batchSize, len(sample))
		s.setPhase(types.PhaseDispatching)
		r.log.Info(ctx, "dispatching batch", logger.Batch(b+1), logger.Int("of", r.batches), logger.Int("cases", hi-lo))

		records := s.dispatcher.Dispatch(ctx, sample[lo:hi], tx)
		systemic, failed := s.collect(ctx, r, records)
		done += len(records)

		s.setPhase(types.PhaseFlushing)
		s.flush(ctx, r, b+1)
		s.update(func(p *types.Progress) {
			p.Processed = r.resumed + done
			p.Remaining = r.quota - done
			p.Errors += failed
			p.BatchesCompleted = b + 1
		})

		if systemic != nil {
			r.log.Error(ctx, "aborting iteration", logger.Batch(b+1), logger.Error(systemic))
			return fmt.Errorf("%w: %w", ErrIterationAborted, systemic)
		}
		if b < r.batches-1 && !s.pause(ctx) {
			return s.interrupt(ctx, r, b+1, ctx.Err())
		}
	}
	return nil
}

// collect stores a batch of records and runs the failure hook.
func (s *Service) collect(ctx context.Context, r *run, records []model.Record) (systemic error, failed int) {
	for _, rec := range records {
		if err := r.results.Put(ctx, rec); err != nil {
			r.log.Error(ctx, "dropping record", logger.CaseID(rec.CaseID), logger.Error(err))
			continue
		}
		if !rec.IsError() {
			if rec.Confidence < s.confidenceThreshold {
				metrics.RecordLowConfidence()
			}
			continue
		}
		failed++
		if s.failureHook != nil && systemic == nil {
			systemic = s.failureHook(ctx, rec)
		}
	}
	return systemic, failed
}

func (s *Service) pause(ctx context.Context) bool {
	if s.batchPause <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.batchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// interrupt flushes progress and reports a cancelled iteration.
func (s *Service) interrupt(ctx context.Context, r *run, batches int, cause error) error {
	s.flush(ctx, r, batches)
	r.log.Warn(ctx, "iteration interrupted, progress saved",
		logger.Int("batches_completed", batches),
		logger.Int("records", r.results.Count(ctx)),
	)
	return cause
}

// rows renders every stored record in corpus order, followed by recovered
// cases that are no longer in the corpus.
func (s *Service) rows(ctx context.Context, r *run) (merge.Table, []merge.Issue) {
	cases := make([]model.Case, 0, r.results.Count(ctx))
	for _, c := range r.corpus.Cases {
		if r.results.Has(ctx, c.ID) {
			cases = append(cases, c)
		}
	}
	for _, id := range r.results.IDs(ctx) {
		if c, ok := r.recovered[id]; ok {
			cases = append(cases, c)
		}
	}
	return merge.MergeRecordsIntoRows(r.corpus.Columns, cases, r.results.Records(ctx))
}

// flush persists progress and checkpoint. Failures are logged, never fatal.
func (s *Service) flush(ctx context.Context, r *run, batches int) {
	table, _ := s.rows(ctx, r)
	if err := s.artifacts.WriteProgress(r.req.Name, table); err != nil {
		metrics.RecordErrorByComponent("service", "flush")
		r.log.Error(ctx, "failed to flush progress", logger.Error(err))
	}
	s.checkpoint(ctx, r, batches)
}

func (s *Service) checkpoint(ctx context.Context, r *run, batches int) {
	processed := r.results.Count(ctx)
	cp := types.Checkpoint{
		RunID:            r.id,
		Iteration:        r.req.Name,
		Target:           r.req.TargetSize,
		AlreadyProcessed: r.resumed,
		Remaining:        max(0, r.quota-(processed-r.resumed)),
		Processed:        processed,
		BatchesCompleted: batches,
		Timestamp:        unixSeconds(s.now()),
	}
	if err := s.artifacts.WriteCheckpoint(r.req.Name, cp); err != nil {
		metrics.RecordErrorByComponent("service", "checkpoint")
		r.log.Error(ctx, "failed to write checkpoint", logger.Error(err))
	}
}

func (s *Service) finalize(ctx context.Context, r *run, tx *taxonomy.Taxonomy) (*IterationResult, error) {
	s.setPhase(types.PhaseFinalizing)
	table, issues := s.rows(ctx, r)
	for _, is := range issues {
		metrics.RecordErrorByComponent("merge", "invalid_record")
		r.log.Warn(ctx, "record replaced by defaults", logger.CaseID(is.CaseID), logger.Error(is.Err))
	}

	if err := s.artifacts.WriteOutput(r.req.Name, table); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	if err := s.artifacts.RemoveProgress(r.req.Name); err != nil {
		r.log.Warn(ctx, "failed to remove progress artifacts", logger.Error(err))
	}

	processed := dedupe.NewExclusionSet(dedupe.WithIDs(r.results.IDs(ctx)...))
	excluded := processed.Union(r.req.Excluded)

	out := s.artifacts.Path(artifacts.KindOutput, r.req.Name)
	r.log.Info(ctx, "iteration finalized",
		logger.String("output", out),
		logger.Int("records", r.results.Count(ctx)),
		logger.Int("merge_issues", len(issues)),
	)
	return &IterationResult{
		RunID:      r.id,
		Output:     table,
		OutputPath: out,
		Records:    r.results.Records(ctx),
		Taxonomy:   tx,
		Excluded:   excluded,
		Resumed:    r.resumed,
		Dispatched: r.results.Count(ctx) - r.resumed,
		Issues:     issues,
	}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
