// Package metrics provides Prometheus metrics for the pitchline simulation service.
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

// Manager manages all Prometheus metrics for the pitchline service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Simulation lifecycle
	jobsSubmitted prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRejected  prometheus.Counter
	jobsRunning   prometheus.Gauge
	jobsQueued    prometheus.Gauge

	// Tick production
	ticksSimulated prometheus.Counter
	tickDuration   prometheus.Histogram
	matchEvents    *prometheus.CounterVec
	matchDuration  prometheus.Histogram
	throughput     prometheus.Gauge

	// Broadcast hub
	subscriberCount prometheus.Gauge
	updatesDropped  prometheus.Counter
	updatesSent     prometheus.Counter

	// Intake queue
	queueDepth         prometheus.Gauge
	queueCapacity      prometheus.Gauge
	messagesAcked      prometheus.Counter
	messagesNacked     prometheus.Counter
	messagesDeadLetter prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	throttleRejections  prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pitchline",
		subsystem:        "sim",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.jobsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_submitted_total",
		Help:      "Total number of simulation jobs submitted",
	})

	m.jobsCompleted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "jobs_completed_total",
			Help:      "Total number of finished simulation jobs by outcome",
		},
		[]string{"status"},
	)

	m.jobsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_rejected_total",
		Help:      "Total number of jobs rejected at the admission backlog limit",
	})

	m.jobsRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_running",
		Help:      "Number of simulations currently occupying an admission slot",
	})

	m.jobsQueued = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_queued",
		Help:      "Number of admitted-pending jobs waiting for a free slot",
	})

	m.ticksSimulated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_simulated_total",
		Help:      "Total number of match ticks advanced across all simulations",
	})

	m.tickDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tick_duration_milliseconds",
		Help:      "Histogram of single-tick computation time in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.matchEvents = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "match_events_total",
			Help:      "Total number of match events generated by type",
		},
		[]string{"type"},
	)

	m.matchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_wall_duration_seconds",
		Help:      "Wall-clock duration of completed simulations in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 120, 300, 600},
	})

	m.throughput = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_per_second",
		Help:      "Achieved tick throughput of the most recently completed job",
	})

	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_subscribers",
		Help:      "Current number of live broadcast subscribers",
	})

	m.updatesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_updates_dropped_total",
		Help:      "Total tick updates dropped because a subscriber buffer was full",
	})

	m.updatesSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_updates_sent_total",
		Help:      "Total tick updates delivered to subscriber buffers",
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intake_queue_depth",
		Help:      "Current number of messages waiting in the intake queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intake_queue_capacity",
		Help:      "Maximum intake queue capacity",
	})

	m.messagesAcked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intake_messages_acked_total",
		Help:      "Total intake messages acknowledged after admission",
	})

	m.messagesNacked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intake_messages_nacked_total",
		Help:      "Total intake messages negatively acknowledged for redelivery",
	})

	m.messagesDeadLetter = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intake_messages_dead_letter_total",
		Help:      "Total intake messages dead-lettered after exceeding redelivery limit",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.throttleRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "throttle_rejections_total",
		Help:      "Total synchronous submissions rejected by the request throttle",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers backed by the global manager.

func RecordJobSubmitted()            { globalManager.jobsSubmitted.Inc() }
func RecordJobCompleted(status string) {
	globalManager.jobsCompleted.WithLabelValues(status).Inc()
}
func RecordJobRejected()             { globalManager.jobsRejected.Inc() }
func UpdateJobsRunning(n int)        { globalManager.jobsRunning.Set(float64(n)) }
func UpdateJobsQueued(n int)         { globalManager.jobsQueued.Set(float64(n)) }

func RecordTickSimulated()            { globalManager.ticksSimulated.Inc() }
func RecordTickDuration(ms float64)   { globalManager.tickDuration.Observe(ms) }
func RecordMatchEvent(kind string)    { globalManager.matchEvents.WithLabelValues(kind).Inc() }
func RecordMatchDuration(sec float64) { globalManager.matchDuration.Observe(sec) }
func UpdateThroughput(tps float64)    { globalManager.throughput.Set(tps) }

func UpdateSubscriberCount(n int) { globalManager.subscriberCount.Set(float64(n)) }
func RecordUpdateDropped()        { globalManager.updatesDropped.Inc() }
func RecordUpdateSent()           { globalManager.updatesSent.Inc() }

func UpdateQueueDepth(n int)     { globalManager.queueDepth.Set(float64(n)) }
func UpdateQueueCapacity(n int)  { globalManager.queueCapacity.Set(float64(n)) }
func RecordMessageAcked()        { globalManager.messagesAcked.Inc() }
func RecordMessageNacked()       { globalManager.messagesNacked.Inc() }
func RecordMessageDeadLettered() { globalManager.messagesDeadLetter.Inc() }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func RecordThrottleRejection() { globalManager.throttleRejections.Inc() }

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
