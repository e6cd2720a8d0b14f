// Package metrics provides Prometheus metrics for the ROBO-HEIST backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the backend.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Registration outcomes
	registrations          prometheus.Counter
	registrationDuplicates prometheus.Counter
	registrationInvalid    prometheus.Counter
	totalTeams             prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Change notification queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	notifyLatency      prometheus.Histogram

	// Leaderboard stream
	streamSubscribers prometheus.Gauge
	streamBroadcasts  prometheus.Counter
	streamDropped     prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roboheist",
		subsystem:        "backend",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.registrations = auto.NewCounter(m.counterOpts(
		"registrations_total",
		"Total number of teams registered successfully",
	))
	m.registrationDuplicates = auto.NewCounter(m.counterOpts(
		"registrations_duplicate_total",
		"Total number of registrations rejected because the team name was taken",
	))
	m.registrationInvalid = auto.NewCounter(m.counterOpts(
		"registrations_invalid_total",
		"Total number of registrations rejected by field validation",
	))
	m.totalTeams = auto.NewGauge(m.gaugeOpts(
		"teams_total",
		"Number of teams currently on the leaderboard",
	))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.storeUpdateLatency = auto.NewHistogram(m.histogramOpts(
		"store_update_latency_milliseconds",
		"Latency of leaderboard store writes in milliseconds",
		m.histogramBuckets,
	))
	m.storeQueryLatency = auto.NewHistogram(m.histogramOpts(
		"store_query_latency_milliseconds",
		"Latency of leaderboard store reads in milliseconds",
		m.histogramBuckets,
	))

	m.queueSize = auto.NewGauge(m.gaugeOpts(
		"change_queue_size",
		"Number of leaderboard changes waiting to be published",
	))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts(
		"change_queue_capacity",
		"Maximum number of leaderboard changes the queue holds",
	))
	m.queueEnqueued = auto.NewCounter(m.counterOpts(
		"change_queue_enqueued_total",
		"Total number of leaderboard changes enqueued",
	))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts(
		"change_queue_enqueue_errors_total",
		"Total number of leaderboard changes dropped at enqueue",
	))
	m.notifyLatency = auto.NewHistogram(m.histogramOpts(
		"notify_latency_milliseconds",
		"Time to build and publish one leaderboard snapshot in milliseconds",
		m.histogramBuckets,
	))

	m.streamSubscribers = auto.NewGauge(m.gaugeOpts(
		"stream_subscribers",
		"Number of websocket clients subscribed to leaderboard updates",
	))
	m.streamBroadcasts = auto.NewCounter(m.counterOpts(
		"stream_broadcasts_total",
		"Total number of leaderboard snapshots pushed to subscribers",
	))
	m.streamDropped = auto.NewCounter(m.counterOpts(
		"stream_dropped_subscribers_total",
		"Total number of subscribers dropped after a failed send",
	))

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes",
		"System memory usage in bytes",
	))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count",
		"Number of goroutines",
	))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordRegistration increments the successful registrations counter.
func (m *Manager) RecordRegistration() { m.registrations.Inc() }

// RecordRegistrationDuplicate increments the duplicate-name rejections counter.
func (m *Manager) RecordRegistrationDuplicate() { m.registrationDuplicates.Inc() }

// RecordRegistrationInvalid increments the validation rejections counter.
func (m *Manager) RecordRegistrationInvalid() { m.registrationInvalid.Inc() }

// UpdateTotalTeams sets the number of stored teams.
func (m *Manager) UpdateTotalTeams(count int) { m.totalTeams.Set(float64(count)) }

// RecordHTTPRequest records a request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordStoreUpdateLatency records a store write latency.
func (m *Manager) RecordStoreUpdateLatency(latencyMs float64) { m.storeUpdateLatency.Observe(latencyMs) }

// RecordStoreQueryLatency records a store read latency.
func (m *Manager) RecordStoreQueryLatency(latencyMs float64) { m.storeQueryLatency.Observe(latencyMs) }

// UpdateQueueSize sets the number of pending changes.
func (m *Manager) UpdateQueueSize(size int) { m.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the change queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) { m.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueued changes counter.
func (m *Manager) RecordQueueEnqueue() { m.queueEnqueued.Inc() }

// RecordQueueEnqueueError increments the dropped changes counter.
func (m *Manager) RecordQueueEnqueueError() { m.queueEnqueueErrors.Inc() }

// RecordNotifyLatency records how long one publish took.
func (m *Manager) RecordNotifyLatency(latencyMs float64) { m.notifyLatency.Observe(latencyMs) }

// UpdateStreamSubscribers sets the number of stream subscribers.
func (m *Manager) UpdateStreamSubscribers(count int) { m.streamSubscribers.Set(float64(count)) }

// RecordStreamBroadcast increments the broadcast counter.
func (m *Manager) RecordStreamBroadcast() { m.streamBroadcasts.Inc() }

// RecordStreamDropped increments the dropped-subscriber counter.
func (m *Manager) RecordStreamDropped() { m.streamDropped.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) { m.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) { m.systemGCPauseTime.Observe(pauseMs) }

// Package-level helpers delegate to the global manager.

// RecordRegistration increments the successful registrations counter.
func RecordRegistration() { globalManager.RecordRegistration() }

// RecordRegistrationDuplicate increments the duplicate-name rejections counter.
func RecordRegistrationDuplicate() { globalManager.RecordRegistrationDuplicate() }

// RecordRegistrationInvalid increments the validation rejections counter.
func RecordRegistrationInvalid() { globalManager.RecordRegistrationInvalid() }

// UpdateTotalTeams sets the number of stored teams.
func UpdateTotalTeams(count int) { globalManager.UpdateTotalTeams(count) }

// RecordHTTPRequest records a request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordStoreUpdateLatency records a store write latency.
func RecordStoreUpdateLatency(latencyMs float64) { globalManager.RecordStoreUpdateLatency(latencyMs) }

// RecordStoreQueryLatency records a store read latency.
func RecordStoreQueryLatency(latencyMs float64) { globalManager.RecordStoreQueryLatency(latencyMs) }

// UpdateQueueSize sets the number of pending changes.
func UpdateQueueSize(size int) { globalManager.UpdateQueueSize(size) }

// UpdateQueueCapacity sets the change queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.UpdateQueueCapacity(capacity) }

// RecordQueueEnqueue increments the enqueued changes counter.
func RecordQueueEnqueue() { globalManager.RecordQueueEnqueue() }

// RecordQueueEnqueueError increments the dropped changes counter.
func RecordQueueEnqueueError() { globalManager.RecordQueueEnqueueError() }

// RecordNotifyLatency records how long one publish took.
func RecordNotifyLatency(latencyMs float64) { globalManager.RecordNotifyLatency(latencyMs) }

// UpdateStreamSubscribers sets the number of stream subscribers.
func UpdateStreamSubscribers(count int) { globalManager.UpdateStreamSubscribers(count) }

// RecordStreamBroadcast increments the broadcast counter.
func RecordStreamBroadcast() { globalManager.RecordStreamBroadcast() }

// RecordStreamDropped increments the dropped-subscriber counter.
func RecordStreamDropped() { globalManager.RecordStreamDropped() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// Configure replaces the global manager with one built from opts on a fresh
// registry. It is meant for process startup, before anything records metrics.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
