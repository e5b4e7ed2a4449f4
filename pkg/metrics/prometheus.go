// Package metrics provides Prometheus metrics for the courtside live core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Ingestion metrics.
	eventsAccepted  prometheus.Counter
	eventsRejected  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	appendLatency   prometheus.Histogram
	applyLatency    prometheus.Histogram

	// Broadcast metrics.
	broadcastDeliveries prometheus.Counter
	broadcastDrops      prometheus.Counter
	broadcastResyncs    prometheus.Counter
	subscriberCount     prometheus.Gauge

	// Game lifecycle metrics.
	liveGames  prometheus.Gauge
	totalGames prometheus.Gauge

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager on a private registry so default Go collectors stay out.
var globalManager *Manager            //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "courtside",
		subsystem:        "live",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initCollectors()
	return m
}

func (m *Manager) initCollectors() {
	factory := promauto.With(m.registry)

	m.eventsAccepted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_accepted_total",
		Help:      "Stat events accepted and assigned a sequence number.",
	})
	m.eventsRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Stat events rejected by the ingestion gateway, by reason.",
	}, []string{"reason"})
	m.eventsDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Resubmissions answered from the idempotency cache.",
	})
	m.appendLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_append_duration_ms",
		Help:      "Event store append latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.applyLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_apply_duration_ms",
		Help:      "Aggregator apply latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.broadcastDeliveries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_deliveries_total",
		Help:      "Delta messages delivered to subscriber channels.",
	})
	m.broadcastDrops = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_drops_total",
		Help:      "Delta messages dropped because a subscriber channel was full.",
	})
	m.broadcastResyncs = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_resyncs_total",
		Help:      "Catch-up snapshots sent to subscribers after a dropped delta.",
	})
	m.subscriberCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribers",
		Help:      "Currently registered live subscriptions.",
	})

	m.liveGames = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_games",
		Help:      "Games currently in the LIVE state.",
	})
	m.totalGames = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games",
		Help:      "Games registered in the catalog.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// Handler exposes the private registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level recording helpers backed by the global manager.

func RecordEventAccepted() {
	if globalManager.enabled {
		globalManager.eventsAccepted.Inc()
	}
}

func RecordEventRejected(reason string) {
	if globalManager.enabled {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

func RecordEventDuplicate() {
	if globalManager.enabled {
		globalManager.eventsDuplicate.Inc()
	}
}

func RecordAppendLatency(ms float64) {
	if globalManager.enabled {
		globalManager.appendLatency.Observe(ms)
	}
}

func RecordApplyLatency(ms float64) {
	if globalManager.enabled {
		globalManager.applyLatency.Observe(ms)
	}
}

func RecordBroadcastDelivery() {
	if globalManager.enabled {
		globalManager.broadcastDeliveries.Inc()
	}
}

func RecordBroadcastDrop() {
	if globalManager.enabled {
		globalManager.broadcastDrops.Inc()
	}
}

func RecordBroadcastResync() {
	if globalManager.enabled {
		globalManager.broadcastResyncs.Inc()
	}
}

func UpdateSubscriberCount(n int) {
	if globalManager.enabled {
		globalManager.subscriberCount.Set(float64(n))
	}
}

func UpdateLiveGames(n int) {
	if globalManager.enabled {
		globalManager.liveGames.Set(float64(n))
	}
}

func UpdateTotalGames(n int) {
	if globalManager.enabled {
		globalManager.totalGames.Set(float64(n))
	}
}

func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
	}
}
