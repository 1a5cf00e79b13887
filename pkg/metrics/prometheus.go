// Package metrics provides Prometheus metrics for the review360 service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the review360 service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsCreated   prometheus.Counter
	sessionsSubmitted prometheus.Counter
	sessionsDeleted   prometheus.Counter
	sessionsEvicted   *prometheus.CounterVec
	sessionsActive    prometheus.Gauge
	scoreUpdates      prometheus.Counter

	// Aggregation
	aggregations       *prometheus.CounterVec
	aggregationLatency prometheus.Histogram
	matrixCompetencies prometheus.Histogram
	matrixEvaluators   prometheus.Histogram

	// Charts
	chartsRendered     *prometheus.CounterVec
	chartRenderLatency prometheus.Histogram

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "review360",
		subsystem:        "reviews",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	sizeBuckets := []float64{1, 2, 3, 5, 8, 10, 15, 20, 30, 50}

	m.sessionsCreated = auto.NewCounter(m.counter("sessions_created_total",
		"Total number of review sessions created"))
	m.sessionsSubmitted = auto.NewCounter(m.counter("sessions_submitted_total",
		"Total number of score matrices submitted"))
	m.sessionsDeleted = auto.NewCounter(m.counter("sessions_deleted_total",
		"Total number of sessions deleted by clients"))
	m.sessionsEvicted = auto.NewCounterVec(m.counter("sessions_evicted_total",
		"Total number of sessions removed by the store"), []string{"reason"})
	m.sessionsActive = auto.NewGauge(m.gauge("sessions_active",
		"Current number of sessions held in memory"))
	m.scoreUpdates = auto.NewCounter(m.counter("score_updates_total",
		"Total number of draft cells written"))

	m.aggregations = auto.NewCounterVec(m.counter("aggregations_total",
		"Total number of aggregation runs by outcome"), []string{"outcome"})
	m.aggregationLatency = auto.NewHistogram(m.histogram("aggregation_latency_milliseconds",
		"Aggregation latency in milliseconds", m.histogramBuckets))
	m.matrixCompetencies = auto.NewHistogram(m.histogram("matrix_competencies",
		"Number of competencies (rows) per aggregated matrix", sizeBuckets))
	m.matrixEvaluators = auto.NewHistogram(m.histogram("matrix_evaluators",
		"Number of evaluators (columns) per aggregated matrix", sizeBuckets))

	m.chartsRendered = auto.NewCounterVec(m.counter("charts_rendered_total",
		"Total number of charts rendered by kind"), []string{"kind"})
	m.chartRenderLatency = auto.NewHistogram(m.histogram("chart_render_latency_milliseconds",
		"Chart rendering latency in milliseconds", m.histogramBuckets))

	m.repositoryUpdateLatency = auto.NewHistogram(m.histogram("repository_update_latency_milliseconds",
		"Session store write latency in milliseconds", m.histogramBuckets))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogram("repository_query_latency_milliseconds",
		"Session store read latency in milliseconds", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.httpRateLimited = auto.NewCounterVec(m.counter("http_rate_limited_total",
		"Total number of requests rejected by the rate limiter"), []string{"endpoint"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordSessionCreated increments the sessions created counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionSubmitted increments the submitted matrices counter.
func RecordSessionSubmitted() {
	globalManager.sessionsSubmitted.Inc()
}

// RecordSessionDeleted increments the deleted sessions counter.
func RecordSessionDeleted() {
	globalManager.sessionsDeleted.Inc()
}

// RecordSessionEvicted counts a session dropped by the store ("capacity" or "expired").
func RecordSessionEvicted(reason string) {
	globalManager.sessionsEvicted.WithLabelValues(reason).Inc()
}

// UpdateActiveSessions sets the number of sessions held in memory.
func UpdateActiveSessions(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordScoreUpdates adds n written draft cells.
func RecordScoreUpdates(n int) {
	globalManager.scoreUpdates.Add(float64(n))
}

// RecordAggregation records the outcome and latency of one aggregation run.
func RecordAggregation(outcome string, latencyMs float64) {
	globalManager.aggregations.WithLabelValues(outcome).Inc()
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordMatrixShape records the dimensions of an aggregated matrix.
func RecordMatrixShape(competencies, evaluators int) {
	globalManager.matrixCompetencies.Observe(float64(competencies))
	globalManager.matrixEvaluators.Observe(float64(evaluators))
}

// RecordChartRendered records a rendered chart and its latency.
func RecordChartRendered(kind string, latencyMs float64) {
	globalManager.chartsRendered.WithLabelValues(kind).Inc()
	globalManager.chartRenderLatency.Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records session store write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records session store read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
