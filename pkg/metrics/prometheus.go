// Package metrics provides Prometheus metrics for the match import service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Pipeline
	imports           *prometheus.CounterVec
	eventsImported    prometheus.Counter
	eventsDiscarded   prometheus.Counter
	defects           *prometheus.CounterVec
	syntheticAnchors  *prometheus.CounterVec
	stageLatency      *prometheus.HistogramVec
	recalculations    *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	duplicateImports  prometheus.Counter
	importJobDuration prometheus.Histogram

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	activeWorkers prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served by /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchlog",
		subsystem:        "import",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.imports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Import runs by outcome and source format",
	}, []string{"status", "format"})

	m.eventsImported = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_total",
		Help:      "Canonical events produced by the pipeline",
	})

	m.eventsDiscarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_discarded_total",
		Help:      "Raw instances dropped by discard_categories",
	})

	m.defects = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "defects_total",
		Help:      "Recoverable per-event defects by kind",
	}, []string{"kind"})

	m.syntheticAnchors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "synthetic_anchors_total",
		Help:      "Period anchors that had to be synthesized",
	}, []string{"anchor"})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_latency_milliseconds",
		Help:      "Pipeline stage latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.recalculations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recalculations_total",
		Help:      "Game-time recalculations by outcome",
	}, []string{"status"})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_total",
		Help:      "Import-completed notifications by outcome",
	}, []string{"status"})

	m.duplicateImports = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Import submissions rejected as duplicates",
	})

	m.importJobDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_duration_milliseconds",
		Help:      "End-to-end import job duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Import jobs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of queued import jobs",
	})

	m.activeWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_workers",
		Help:      "Workers currently running an import",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordImport counts a finished import run.
func (m *Manager) RecordImport(status, format string) {
	if m.enabled {
		m.imports.WithLabelValues(status, format).Inc()
	}
}

// RecordEventsImported adds n produced events.
func (m *Manager) RecordEventsImported(n int) {
	if m.enabled && n > 0 {
		m.eventsImported.Add(float64(n))
	}
}

// RecordEventsDiscarded adds n discarded instances.
func (m *Manager) RecordEventsDiscarded(n int) {
	if m.enabled && n > 0 {
		m.eventsDiscarded.Add(float64(n))
	}
}

// RecordDefect counts one per-event defect.
func (m *Manager) RecordDefect(kind string) {
	if m.enabled {
		m.defects.WithLabelValues(kind).Inc()
	}
}

// RecordSyntheticAnchor counts a synthesized period anchor.
func (m *Manager) RecordSyntheticAnchor(anchor string) {
	if m.enabled {
		m.syntheticAnchors.WithLabelValues(anchor).Inc()
	}
}

// ObserveStageLatency records a stage duration in milliseconds.
func (m *Manager) ObserveStageLatency(stage string, ms float64) {
	if m.enabled {
		m.stageLatency.WithLabelValues(stage).Observe(ms)
	}
}

// RecordRecalculation counts a recalculation.
func (m *Manager) RecordRecalculation(status string) {
	if m.enabled {
		m.recalculations.WithLabelValues(status).Inc()
	}
}

// RecordNotification counts a notifier publish attempt.
func (m *Manager) RecordNotification(status string) {
	if m.enabled {
		m.notifications.WithLabelValues(status).Inc()
	}
}

// RecordDuplicateImport counts a rejected duplicate submission.
func (m *Manager) RecordDuplicateImport() {
	if m.enabled {
		m.duplicateImports.Inc()
	}
}

// ObserveJobDuration records an end-to-end job duration.
func (m *Manager) ObserveJobDuration(ms float64) {
	if m.enabled {
		m.importJobDuration.Observe(ms)
	}
}

// UpdateQueueSize sets the queue backlog gauge.
func (m *Manager) UpdateQueueSize(n int) {
	if m.enabled {
		m.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func (m *Manager) UpdateQueueCapacity(n int) {
	if m.enabled {
		m.queueCapacity.Set(float64(n))
	}
}

// AddActiveWorkers moves the active worker gauge by delta.
func (m *Manager) AddActiveWorkers(delta int) {
	if m.enabled {
		m.activeWorkers.Add(float64(delta))
	}
}

// RecordHTTPRequest counts an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records an HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// Package-level helpers over the global manager.

func RecordImport(status, format string)       { globalManager.RecordImport(status, format) }
func RecordEventsImported(n int)               { globalManager.RecordEventsImported(n) }
func RecordEventsDiscarded(n int)              { globalManager.RecordEventsDiscarded(n) }
func RecordDefect(kind string)                 { globalManager.RecordDefect(kind) }
func RecordSyntheticAnchor(anchor string)      { globalManager.RecordSyntheticAnchor(anchor) }
func ObserveStageLatency(s string, ms float64) { globalManager.ObserveStageLatency(s, ms) }
func RecordRecalculation(status string)        { globalManager.RecordRecalculation(status) }
func RecordNotification(status string)         { globalManager.RecordNotification(status) }
func RecordDuplicateImport()                   { globalManager.RecordDuplicateImport() }
func ObserveJobDuration(ms float64)            { globalManager.ObserveJobDuration(ms) }
func UpdateQueueSize(n int)                    { globalManager.UpdateQueueSize(n) }
func UpdateQueueCapacity(n int)                { globalManager.UpdateQueueCapacity(n) }
func AddActiveWorkers(delta int)               { globalManager.AddActiveWorkers(delta) }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, ms)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
