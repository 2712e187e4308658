// Package config defines the pipeline configuration and its loading hooks.
//
// Conventions:
//   - Only the outermost entry point reads the environment; everything below
//     receives a *Config value.
//   - Durations are stored as integer milliseconds and exposed through
//     helper methods.
package config

import "time"

// Oracle providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderSimulated = "simulated"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// StatusAddr is the listen address of the status server; empty disables it.
	StatusAddr string `koanf:"status_addr"`

	// WorkDir holds progress, checkpoint, output and discovered schema artifacts.
	WorkDir string `koanf:"work_dir"`
	// CorpusFile is the CSV corpus with Case and Gist columns.
	CorpusFile string `koanf:"corpus_file"`
	// SchemaFile is the curated taxonomy; empty means discover one.
	SchemaFile string `koanf:"schema_file"`
	// InstructionsFile holds extra curator guidance appended to classification prompts.
	InstructionsFile string `koanf:"instructions_file"`

	// BatchSize is the number of cases dispatched per batch.
	BatchSize int `koanf:"batch_size"`
	// Concurrency caps in-flight oracle calls inside a batch.
	Concurrency int `koanf:"concurrency"`
	// BatchPauseMS is the pause between batches.
	BatchPauseMS int `koanf:"batch_pause_ms"`
	// MaxRetries bounds retries of rate-limited or network failures per case.
	MaxRetries int `koanf:"max_retries"`
	// RetryBackoffMS is the initial retry backoff, doubled per attempt.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// SampleSeed seeds the sampling shuffle.
	SampleSeed int64 `koanf:"sample_seed"`
	// DiscoverySampleSize is how many sampled cases feed schema discovery.
	DiscoverySampleSize int `koanf:"discovery_sample_size"`
	// ConfidenceThreshold flags successful records for manual review.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// Provider selects the oracle implementation.
	Provider   string `koanf:"provider"`
	BaseURL    string `koanf:"base_url"`
	Model      string `koanf:"model"`
	APIVersion string `koanf:"api_version"`
	APIKey     string `koanf:"api_key"`

	MaxTokens            int     `koanf:"max_tokens"`
	DiscoveryMaxTokens   int     `koanf:"discovery_max_tokens"`
	Temperature          float64 `koanf:"temperature"`
	DiscoveryTemperature float64 `koanf:"discovery_temperature"`

	RequestTimeoutMS   int `koanf:"request_timeout_ms"`
	DiscoveryTimeoutMS int `koanf:"discovery_timeout_ms"`

	// SimulatedLatencyMinMS and SimulatedLatencyMaxMS bound the simulated oracle latency.
	SimulatedLatencyMinMS int `koanf:"simulated_latency_min_ms"`
	SimulatedLatencyMaxMS int `koanf:"simulated_latency_max_ms"`

	// Cost estimation rates in dollars per 1K tokens.
	InputCostPer1K  float64 `koanf:"input_cost_per_1k"`
	OutputCostPer1K float64 `koanf:"output_cost_per_1k"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		StatusAddr:            "",
		WorkDir:               ".",
		CorpusFile:            "cases.csv",
		BatchSize:             5,
		Concurrency:           3,
		BatchPauseMS:          2000,
		MaxRetries:            3,
		RetryBackoffMS:        1000,
		SampleSeed:            42,
		DiscoverySampleSize:   10,
		ConfidenceThreshold:   0.7,
		Provider:              ProviderAnthropic,
		BaseURL:               "https://api.anthropic.com/v1/messages",
		Model:                 "claude-3-5-sonnet-20241022",
		APIVersion:            "2023-06-01",
		MaxTokens:             1000,
		DiscoveryMaxTokens:    2000,
		Temperature:           0.1,
		DiscoveryTemperature:  0.3,
		RequestTimeoutMS:      120_000,
		DiscoveryTimeoutMS:    60_000,
		SimulatedLatencyMinMS: 80,
		SimulatedLatencyMaxMS: 150,
		InputCostPer1K:        0.003,
		OutputCostPer1K:       0.015,
	}
}

// BatchPause returns BatchPauseMS as a duration.
func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMS) * time.Millisecond
}

// RetryBackoff returns RetryBackoffMS as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// DiscoveryTimeout returns DiscoveryTimeoutMS as a duration.
func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.DiscoveryTimeoutMS) * time.Millisecond
}

// SimulatedLatency returns the simulated oracle latency bounds.
func (c *Config) SimulatedLatency() (time.Duration, time.Duration) {
	return time.Duration(c.SimulatedLatencyMinMS) * time.Millisecond,
		time.Duration(c.SimulatedLatencyMaxMS) * time.Millisecond
}
