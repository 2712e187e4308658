package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "CASETAG_"
	envConfigFile = "CASETAG_CONFIG"

	// Conventional provider variables consulted when api_key is unset.
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envGeminiKey    = "GEMINI_API_KEY"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CASETAG_CONFIG is set
//  3. env (prefix CASETAG_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CASETAG_BATCH_SIZE -> batch_size (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case ProviderAnthropic:
			cfg.APIKey = os.Getenv(envAnthropicKey)
		case ProviderGemini:
			cfg.APIKey = os.Getenv(envGeminiKey)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural settings. Credentials are checked separately by
// ValidateCredentials so commands that never call the oracle can run without one.
func (c *Config) Validate() error {
	switch {
	case c.WorkDir == "":
		return fmt.Errorf("%w: work_dir must not be empty", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, c.Concurrency)
	case c.Concurrency > c.BatchSize:
		return fmt.Errorf("%w: concurrency %d exceeds batch_size %d", ErrInvalidConfig, c.Concurrency, c.BatchSize)
	case c.BatchPauseMS < 0 || c.RetryBackoffMS < 0:
		return fmt.Errorf("%w: pauses must not be negative", ErrInvalidConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	case c.DiscoverySampleSize < 1:
		return fmt.Errorf("%w: discovery_sample_size must be positive", ErrInvalidConfig)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence_threshold must be within [0,1]", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0 || c.DiscoveryTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.SimulatedLatencyMinMS < 0 || c.SimulatedLatencyMaxMS < c.SimulatedLatencyMinMS:
		return fmt.Errorf("%w: simulated latency range is invalid", ErrInvalidConfig)
	}
	switch c.Provider {
	case ProviderAnthropic, ProviderGemini, ProviderSimulated:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// ValidateCredentials reports a missing or malformed oracle credential.
func (c *Config) ValidateCredentials() error {
	switch c.Provider {
	case ProviderSimulated:
		return nil
	case ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set CASETAG_API_KEY or %s", ErrMissingCredential, envAnthropicKey)
		}
		if !strings.HasPrefix(c.APIKey, "sk-") {
			return fmt.Errorf("%w: anthropic keys start with \"sk-\"", ErrMalformedCredential)
		}
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set CASETAG_API_KEY or %s", ErrMissingCredential, envGeminiKey)
		}
	}
	if strings.ContainsAny(c.APIKey, " \t\r\n") {
		return fmt.Errorf("%w: key contains whitespace", ErrMalformedCredential)
	}
	return nil
}
