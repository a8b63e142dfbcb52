// Package metrics provides Prometheus metrics for the ETA estimation pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Data quality dimensions exported through the quality gauge.
const (
	DimensionCompleteness = "completeness"
	DimensionAccuracy     = "accuracy"
	DimensionTimeliness   = "timeliness"
	DimensionConsistency  = "consistency"
)

// Source fetch outcomes.
const (
	FetchSuccess  = "success"
	FetchCacheHit = "cache_hit"
	FetchFailed   = "failed"
	FetchAttempt  = "attempt_error"
)

// Manager owns every Prometheus collector used by the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Run level
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Stage level
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec

	// Source level
	sourceFetches      *prometheus.CounterVec
	sourceFetchLatency *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
	validationFailures *prometheus.CounterVec

	// Cache
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEntries prometheus.Gauge
	cacheSwept   prometheus.Counter

	// Quality
	dataQuality *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Batch queue and workers
	queueSize     prometheus.Gauge
	queueRejected *prometheus.CounterVec
	batchJobs     *prometheus.CounterVec
	workersActive prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "etaflow",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Pipeline invocations by outcome (success, fatal)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "End-to-end pipeline execution time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Per-stage execution time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_errors_total",
		Help:        "Stage failures by stage and whether the handler marked them fatal",
		ConstLabels: m.constLabels,
	}, []string{"stage", "fatal"})

	m.sourceFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetches_total",
		Help:        "Source fetch outcomes by source type",
		ConstLabels: m.constLabels,
	}, []string{"source", "outcome"})

	m.sourceFetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetch_latency_milliseconds",
		Help:        "Latency of provider adapter calls in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fallbacks_total",
		Help:        "Fallback policy invocations by source and strategy, split by whether data was produced",
		ConstLabels: m.constLabels,
	}, []string{"source", "strategy", "produced"})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_failures_total",
		Help:        "Sources dropped by validation",
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_hits_total",
		Help:        "Fresh cache reads",
		ConstLabels: m.constLabels,
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_misses_total",
		Help:        "Cache reads that found no fresh entry",
		ConstLabels: m.constLabels,
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_entries",
		Help:        "Entries currently held by the source cache",
		ConstLabels: m.constLabels,
	})

	m.cacheSwept = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_swept_total",
		Help:        "Entries removed after outliving their stale retention window",
		ConstLabels: m.constLabels,
	})

	m.dataQuality = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "data_quality_ratio",
		Help:        "Data quality of the most recent run by dimension",
		ConstLabels: m.constLabels,
	}, []string{"dimension"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "batch",
		Name:        "queue_size",
		Help:        "Estimate jobs waiting in the batch queue",
		ConstLabels: m.constLabels,
	})

	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "batch",
		Name:        "queue_rejected_total",
		Help:        "Estimate jobs refused by the batch queue by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.batchJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "batch",
		Name:        "jobs_total",
		Help:        "Estimate jobs processed by workers by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.workersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "batch",
		Name:        "workers_active",
		Help:        "Running batch workers",
		ConstLabels: m.constLabels,
	})
}

// RecordRun counts a finished pipeline run and observes its duration.
func (m *Manager) RecordRun(success bool, durationMs float64) {
	if !m.enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "fatal"
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(durationMs)
}

// RecordStage observes a stage duration.
func (m *Manager) RecordStage(stage string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordStageError counts a stage failure.
func (m *Manager) RecordStageError(stage string, fatal bool) {
	if !m.enabled {
		return
	}
	m.stageErrors.WithLabelValues(stage, fmt.Sprintf("%t", fatal)).Inc()
}

// RecordSourceFetch counts a fetch outcome for a source type.
func (m *Manager) RecordSourceFetch(source, outcome string) {
	if !m.enabled {
		return
	}
	m.sourceFetches.WithLabelValues(source, outcome).Inc()
}

// RecordSourceLatency observes one adapter call.
func (m *Manager) RecordSourceLatency(source string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.sourceFetchLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordFallback counts a fallback policy invocation.
func (m *Manager) RecordFallback(source, strategy string, produced bool) {
	if !m.enabled {
		return
	}
	m.fallbacks.WithLabelValues(source, strategy, fmt.Sprintf("%t", produced)).Inc()
}

// RecordValidationFailure counts a source dropped by validation.
func (m *Manager) RecordValidationFailure(source string) {
	if !m.enabled {
		return
	}
	m.validationFailures.WithLabelValues(source).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Manager) RecordCacheLookup(hit bool) {
	if !m.enabled {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// UpdateCacheEntries sets the cache size gauge.
func (m *Manager) UpdateCacheEntries(n int) {
	if !m.enabled {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// RecordCacheSwept counts entries removed by a sweep.
func (m *Manager) RecordCacheSwept(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.cacheSwept.Add(float64(n))
}

// UpdateDataQuality sets the quality gauge for one dimension.
func (m *Manager) UpdateDataQuality(dimension string, value float64) error {
	switch dimension {
	case DimensionCompleteness, DimensionAccuracy, DimensionTimeliness, DimensionConsistency:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDimension, dimension)
	}
	if !m.enabled {
		return nil
	}
	m.dataQuality.WithLabelValues(dimension).Set(value)
	return nil
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateQueueSize sets the batch queue length gauge.
func (m *Manager) UpdateQueueSize(n int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(n))
}

// RecordQueueRejected counts a job the queue refused.
func (m *Manager) RecordQueueRejected(reason string) {
	if !m.enabled {
		return
	}
	m.queueRejected.WithLabelValues(reason).Inc()
}

// RecordBatchJob counts a processed batch job.
func (m *Manager) RecordBatchJob(success bool) {
	if !m.enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	m.batchJobs.WithLabelValues(outcome).Inc()
}

// UpdateWorkersActive sets the running worker gauge.
func (m *Manager) UpdateWorkersActive(n int) {
	if !m.enabled {
		return
	}
	m.workersActive.Set(float64(n))
}

// Package-level helpers delegate to the global manager.

// RecordRun counts a finished pipeline run.
func RecordRun(success bool, durationMs float64) { globalManager.RecordRun(success, durationMs) }

// RecordStage observes a stage duration.
func RecordStage(stage string, durationMs float64) { globalManager.RecordStage(stage, durationMs) }

// RecordStageError counts a stage failure.
func RecordStageError(stage string, fatal bool) { globalManager.RecordStageError(stage, fatal) }

// RecordSourceFetch counts a fetch outcome.
func RecordSourceFetch(source, outcome string) { globalManager.RecordSourceFetch(source, outcome) }

// RecordSourceLatency observes one adapter call.
func RecordSourceLatency(source string, latencyMs float64) {
	globalManager.RecordSourceLatency(source, latencyMs)
}

// RecordFallback counts a fallback policy invocation.
func RecordFallback(source, strategy string, produced bool) {
	globalManager.RecordFallback(source, strategy, produced)
}

// RecordValidationFailure counts a dropped source.
func RecordValidationFailure(source string) { globalManager.RecordValidationFailure(source) }

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) { globalManager.RecordCacheLookup(hit) }

// UpdateCacheEntries sets the cache size gauge.
func UpdateCacheEntries(n int) { globalManager.UpdateCacheEntries(n) }

// RecordCacheSwept counts swept entries.
func RecordCacheSwept(n int) { globalManager.RecordCacheSwept(n) }

// UpdateDataQuality sets the quality gauge for one dimension.
func UpdateDataQuality(dimension string, value float64) error {
	return globalManager.UpdateDataQuality(dimension, value)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// UpdateQueueSize sets the batch queue length gauge.
func UpdateQueueSize(n int) { globalManager.UpdateQueueSize(n) }

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) { globalManager.RecordQueueRejected(reason) }

// RecordBatchJob counts a processed batch job.
func RecordBatchJob(success bool) { globalManager.RecordBatchJob(success) }

// UpdateWorkersActive sets the running worker gauge.
func UpdateWorkersActive(n int) { globalManager.UpdateWorkersActive(n) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
