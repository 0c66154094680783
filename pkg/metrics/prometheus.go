// Package metrics provides Prometheus metrics for the pitwall pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Telemetry loading
	samplesLoaded *prometheus.CounterVec
	rowsCapped    *prometheus.CounterVec
	frameRows     *prometheus.GaugeVec

	// Detection output
	cornersDetected *prometheus.CounterVec
	brakingEvents   *prometheus.CounterVec
	sectorsBuilt    *prometheus.CounterVec
	detectLatency   *prometheus.HistogramVec

	// Soft and hard failures
	missingSignals *prometheus.CounterVec
	queryFailures  *prometheus.CounterVec

	// Strategy simulation
	strategyRuns     prometheus.Counter
	strategyFillers  prometheus.Counter
	strategyBestStop *prometheus.CounterVec

	// Jobs, queue and workers
	jobsProcessed *prometheus.CounterVec
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueRejected *prometheus.CounterVec
	workerCount   prometheus.Gauge
	jobLatency    prometheus.Histogram
	storedTracks  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "pitwall",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.samplesLoaded = m.counterVec("samples_loaded_total", "Raw telemetry samples read from the columnar store", "track")
	m.rowsCapped = m.counterVec("rows_capped_total", "Loads that hit the row cap", "track")
	m.frameRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aligned_frame_rows",
		Help:      "Rows in the last aligned frame per track",
	}, []string{"track"})

	m.cornersDetected = m.counterVec("corners_detected_total", "Corner records emitted", "track")
	m.brakingEvents = m.counterVec("braking_events_total", "Braking events emitted", "track")
	m.sectorsBuilt = m.counterVec("sector_summaries_total", "Sector summaries computed by outcome", "outcome")
	m.detectLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detect_latency_milliseconds",
		Help:      "Latency of one detector run over one track",
		Buckets:   m.histogramBuckets,
	}, []string{"component"})

	m.missingSignals = m.counterVec("missing_signal_total", "Tracks lacking a required channel", "component", "track")
	m.queryFailures = m.counterVec("query_failures_total", "Columnar store queries that failed", "source")

	m.strategyRuns = m.counter("strategy_simulations_total", "Strategy simulations run")
	m.strategyFillers = m.counter("strategy_filler_laps_total", "Filler laps synthesized for sparse lap histories")
	m.strategyBestStop = m.counterVec("strategy_best_stops_total", "Best strategy stop count", "stops")

	m.jobsProcessed = m.counterVec("jobs_processed_total", "Track build jobs by outcome", "outcome")
	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueRejected = m.counterVec("queue_rejected_total", "Jobs rejected by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_latency_milliseconds",
		Help:      "End to end latency of one track build job",
		Buckets:   m.histogramBuckets,
	})
	m.storedTracks = m.gauge("stored_tracks", "Tracks with metadata in the store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

// RecordSamplesLoaded counts raw samples read for a track.
func RecordSamplesLoaded(track string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.samplesLoaded.WithLabelValues(track).Add(float64(n))
	}
}

// RecordRowsCapped notes that a load was truncated by the row cap.
func RecordRowsCapped(track string) {
	if globalManager.enabled {
		globalManager.rowsCapped.WithLabelValues(track).Inc()
	}
}

// UpdateFrameRows sets the aligned row count for a track.
func UpdateFrameRows(track string, n int) {
	if globalManager.enabled {
		globalManager.frameRows.WithLabelValues(track).Set(float64(n))
	}
}

// RecordCorners counts emitted corner records.
func RecordCorners(track string, n int) {
	if globalManager.enabled {
		globalManager.cornersDetected.WithLabelValues(track).Add(float64(n))
	}
}

// RecordBrakingEvents counts emitted braking events.
func RecordBrakingEvents(track string, n int) {
	if globalManager.enabled {
		globalManager.brakingEvents.WithLabelValues(track).Add(float64(n))
	}
}

// RecordSectorSummary counts sector aggregations by outcome (ok|unavailable).
func RecordSectorSummary(outcome string) {
	if globalManager.enabled {
		globalManager.sectorsBuilt.WithLabelValues(outcome).Inc()
	}
}

// RecordDetectLatency observes one detector run.
func RecordDetectLatency(component string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.detectLatency.WithLabelValues(component).Observe(latencyMs)
	}
}

// RecordMissingSignal counts a MissingSignal soft failure.
func RecordMissingSignal(component, track string) {
	if globalManager.enabled {
		globalManager.missingSignals.WithLabelValues(component, track).Inc()
	}
}

// RecordQueryFailure counts a failed store query.
func RecordQueryFailure(source string) {
	if globalManager.enabled {
		globalManager.queryFailures.WithLabelValues(source).Inc()
	}
}

// RecordStrategyRun counts a strategy simulation and its filler laps.
func RecordStrategyRun(fillerLaps int) {
	if !globalManager.enabled {
		return
	}
	globalManager.strategyRuns.Inc()
	if fillerLaps > 0 {
		globalManager.strategyFillers.Add(float64(fillerLaps))
	}
}

// RecordBestStops counts the chosen stop count.
func RecordBestStops(stops string) {
	if globalManager.enabled {
		globalManager.strategyBestStop.WithLabelValues(stops).Inc()
	}
}

// RecordJob counts a finished job by outcome (ok|failed).
func RecordJob(outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.jobsProcessed.WithLabelValues(outcome).Inc()
	globalManager.jobLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the queue backlog.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueRejected counts a rejected enqueue.
func RecordQueueRejected(reason string) {
	if globalManager.enabled {
		globalManager.queueRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateStoredTracks sets the number of tracks in the metadata store.
func UpdateStoredTracks(count int) {
	if globalManager.enabled {
		globalManager.storedTracks.Set(float64(count))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
