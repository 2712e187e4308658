package service

import (
	"time"

	"github.com/okian/casetag/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBatchSize sets the number of cases dispatched per batch.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency sets the in-flight call limit of the default dispatcher.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetries sets the retry policy of the default dispatcher.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(s *Service) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithDispatcher replaces the default worker pool.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithBatchPause sets the pause between batches.
func WithBatchPause(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchPause = d
		}
	}
}

// WithSampleSeed seeds the sampling shuffle.
func WithSampleSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithDiscoverySample bounds how many sampled cases feed schema discovery.
func WithDiscoverySample(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.discoverySample = n
		}
	}
}

// WithConfidenceThreshold flags successful records below it for review.
func WithConfidenceThreshold(v float64) Option {
	return func(s *Service) {
		if v >= 0 && v <= 1 {
			s.confidenceThreshold = v
		}
	}
}

// WithFailureHook inspects every error record. A non-nil return aborts the
// iteration after the current batch is flushed.
func WithFailureHook(h FailureHook) Option {
	return func(s *Service) {
		s.failureHook = h
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used for checkpoint timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
