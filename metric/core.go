// Package metric provides Prometheus metrics for the pagekit runtime: core
// lifecycle and discovery metrics plus a registry wrapper widgets can attach
// their own collectors to.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the runtime-level metrics (not widget-specific).
type Metrics struct {
	// Component lifecycle
	InstancesLive     *prometheus.GaugeVec   // live instances by component name
	InstancesCreated  *prometheus.CounterVec // created instances by component name
	InstancesFailed   *prometheus.CounterVec // failed initializations by component name
	InstanceInitTime  *prometheus.HistogramVec
	DuplicatesSupp    *prometheus.CounterVec // suppressed duplicate creations

	// Discovery
	DiscoveryPasses      prometheus.Counter
	DiscoveryRateLimited prometheus.Counter

	// Event bus
	EventsEmitted *prometheus.CounterVec

	// Remote services
	RemoteRequestDuration *prometheus.HistogramVec // by service, status
}

// NewMetrics creates a new Metrics instance with all runtime metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		InstancesLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pagekit",
				Subsystem: "component",
				Name:      "instances_live",
				Help:      "Live component instances by name",
			},
			[]string{"component"},
		),

		InstancesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "component",
				Name:      "instances_created_total",
				Help:      "Total component instances created",
			},
			[]string{"component"},
		),

		InstancesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "component",
				Name:      "instances_failed_total",
				Help:      "Total component initializations that failed",
			},
			[]string{"component"},
		),

		InstanceInitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pagekit",
				Subsystem: "component",
				Name:      "init_duration_seconds",
				Help:      "Component initialization duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component"},
		),

		DuplicatesSupp: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "component",
				Name:      "duplicates_suppressed_total",
				Help:      "Creations answered with an existing instance",
			},
			[]string{"component"},
		),

		DiscoveryPasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "discovery",
				Name:      "passes_total",
				Help:      "Discovery scans over the document",
			},
		),

		DiscoveryRateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "discovery",
				Name:      "rate_limited_total",
				Help:      "Reactive discovery reactions coalesced by the rate limit",
			},
		),

		EventsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagekit",
				Subsystem: "eventbus",
				Name:      "events_emitted_total",
				Help:      "Events emitted on the runtime bus",
			},
			[]string{"channel"},
		),

		RemoteRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pagekit",
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Remote service request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "status"},
		),
	}
}

// collectors returns every core collector for bulk registration.
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.InstancesLive,
		m.InstancesCreated,
		m.InstancesFailed,
		m.InstanceInitTime,
		m.DuplicatesSupp,
		m.DiscoveryPasses,
		m.DiscoveryRateLimited,
		m.EventsEmitted,
		m.RemoteRequestDuration,
	}
}

// RecordInstanceCreated records a successful create for a component name.
func (m *Metrics) RecordInstanceCreated(component string) {
	m.InstancesCreated.WithLabelValues(component).Inc()
	m.InstancesLive.WithLabelValues(component).Inc()
}

// RecordInstanceDestroyed records a teardown for a component name.
func (m *Metrics) RecordInstanceDestroyed(component string) {
	m.InstancesLive.WithLabelValues(component).Dec()
}

// RecordInstanceFailed records a failed initialization.
func (m *Metrics) RecordInstanceFailed(component string) {
	m.InstancesFailed.WithLabelValues(component).Inc()
}

// RecordInitDuration records how long one initialization took.
func (m *Metrics) RecordInitDuration(component string, d time.Duration) {
	m.InstanceInitTime.WithLabelValues(component).Observe(d.Seconds())
}

// RecordDuplicateSuppressed records a create answered by an existing
// instance.
func (m *Metrics) RecordDuplicateSuppressed(component string) {
	m.DuplicatesSupp.WithLabelValues(component).Inc()
}

// RecordRemoteRequest records one remote service round trip.
func (m *Metrics) RecordRemoteRequest(service, status string, d time.Duration) {
	m.RemoteRequestDuration.WithLabelValues(service, status).Observe(d.Seconds())
}
