package worker

import (
	"time"

	"github.com/okian/casetag/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithConcurrency caps the number of in-flight classifications.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRetries sets how often a rate-limited or network failure is retried
// and the initial backoff, doubled per attempt.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(p *Pool) {
		if maxRetries >= 0 {
			p.maxRetries = maxRetries
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

// WithName sets the pool name for identification and logging.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
			p.logger = p.logger.Named(name)
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(logger logger.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(p *Pool) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}
