// Package metrics provides Prometheus metrics for the casetag classification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector exported by the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Oracle
	oracleRequests   *prometheus.CounterVec
	oracleLatency    *prometheus.HistogramVec
	oracleRetries    prometheus.Counter
	schemaDiscovered *prometheus.CounterVec

	// Records and batches
	records       *prometheus.CounterVec
	lowConfidence prometheus.Counter
	batches       prometheus.Counter
	batchLatency  prometheus.Histogram
	flushes       *prometheus.CounterVec

	// Iteration progress
	iterationTarget    prometheus.Gauge
	iterationProcessed prometheus.Gauge
	iterationRemaining prometheus.Gauge

	// Taxonomy evolution
	taxonomyTagsAdded *prometheus.CounterVec

	// Status server
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "casetag",
		subsystem:        "pipeline",
		histogramBuckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often callers should refresh gauge metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.oracleRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_requests_total",
		Help:      "Outbound oracle calls by provider and outcome",
	}, []string{"provider", "outcome"})

	m.oracleLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_latency_milliseconds",
		Help:      "Oracle call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"provider"})

	m.oracleRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_retries_total",
		Help:      "Oracle calls retried after a rate limit or network failure",
	})

	m.schemaDiscovered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "schema_discoveries_total",
		Help:      "Schema discovery attempts by outcome (discovered or fallback)",
	}, []string{"outcome"})

	m.records = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_total",
		Help:      "Classification records produced by status and failure kind",
	}, []string{"status", "failure"})

	m.lowConfidence = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "low_confidence_records_total",
		Help:      "Successful records whose confidence is below the review threshold",
	})

	m.batches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_total",
		Help:      "Batches dispatched",
	})

	m.batchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_latency_milliseconds",
		Help:      "Wall time of one batch in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.flushes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifact_writes_total",
		Help:      "Artifact writes by artifact kind and result",
	}, []string{"artifact", "result"})

	m.iterationTarget = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "iteration_target_cases",
		Help:      "Target sample size of the running iteration",
	})

	m.iterationProcessed = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "iteration_processed_cases",
		Help:      "Cases with a record in the running iteration",
	})

	m.iterationRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "iteration_remaining_cases",
		Help:      "Sampled cases still waiting for a record",
	})

	m.taxonomyTagsAdded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "taxonomy_tags_added_total",
		Help:      "Observed tags merged into the taxonomy by category",
	}, []string{"category"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Status server requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Status server request duration in milliseconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Oracle metrics.

// RecordOracleRequest counts one outbound oracle call.
func RecordOracleRequest(provider, outcome string) {
	globalManager.oracleRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordOracleLatency records oracle call latency in milliseconds.
func RecordOracleLatency(provider string, latencyMs float64) {
	globalManager.oracleLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordOracleRetry counts a retried oracle call.
func RecordOracleRetry() {
	globalManager.oracleRetries.Inc()
}

// RecordSchemaDiscovery counts a discovery attempt.
func RecordSchemaDiscovery(outcome string) {
	globalManager.schemaDiscovered.WithLabelValues(outcome).Inc()
}

// Record and batch metrics.

// RecordClassification counts a produced record. failure is empty for successes.
func RecordClassification(status, failure string) {
	globalManager.records.WithLabelValues(status, failure).Inc()
}

// RecordLowConfidence counts a record under the review threshold.
func RecordLowConfidence() {
	globalManager.lowConfidence.Inc()
}

// RecordBatch counts a finished batch and its wall time.
func RecordBatch(latencyMs float64) {
	globalManager.batches.Inc()
	globalManager.batchLatency.Observe(latencyMs)
}

// RecordArtifactWrite counts an artifact write; result is "ok" or "error".
func RecordArtifactWrite(artifact, result string) {
	globalManager.flushes.WithLabelValues(artifact, result).Inc()
}

// Iteration progress.

// UpdateIterationProgress sets the progress gauges of the running iteration.
func UpdateIterationProgress(target, processed, remaining int) {
	globalManager.iterationTarget.Set(float64(target))
	globalManager.iterationProcessed.Set(float64(processed))
	globalManager.iterationRemaining.Set(float64(remaining))
}

// RecordTaxonomyTagsAdded counts tags merged into a category.
func RecordTaxonomyTagsAdded(category string, n int) {
	if n <= 0 {
		return
	}
	globalManager.taxonomyTagsAdded.WithLabelValues(category).Add(float64(n))
}

// HTTP metrics.

// RecordHTTPRequest records a status server request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records status server request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Global returns the process-wide manager.
func Global() *Manager {
	return globalManager
}
