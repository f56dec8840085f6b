package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the finsim service. All methods
// are safe on a disabled (no-op) instance and for concurrent use.
type Metrics struct {
	config MetricsConfig

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Simulation metrics
	simulationsTotal   *prometheus.CounterVec
	simulationDuration prometheus.Histogram

	// External rates lookup metrics
	externalLookupsTotal   *prometheus.CounterVec
	externalLookupDuration prometheus.Histogram

	// Event system metrics
	eventsDropped prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   buckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		simulationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Total number of financing simulations by outcome",
			},
			[]string{"status"},
		),
		simulationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulation_duration_seconds",
				Help:      "Financing simulation latency in seconds",
				Buckets:   buckets,
			},
		),

		externalLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_rate_lookups_total",
				Help:      "Total number of external rate lookups by outcome",
			},
			[]string{"outcome"},
		),
		externalLookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_rate_lookup_duration_seconds",
				Help:      "External rate lookup latency in seconds",
				Buckets:   buckets,
			},
		),

		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Total number of domain events dropped due to a full buffer",
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.simulationsTotal,
		m.simulationDuration,
		m.externalLookupsTotal,
		m.externalLookupDuration,
		m.eventsDropped,
	)

	return m, nil
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RequestStarted marks a request as in flight.
func (m *Metrics) RequestStarted() {
	if m.registry == nil {
		return
	}
	m.httpRequestsInFlight.Inc()
}

// RequestFinished marks an in-flight request as finished.
func (m *Metrics) RequestFinished() {
	if m.registry == nil {
		return
	}
	m.httpRequestsInFlight.Dec()
}

// RecordSimulation records one completed financing simulation.
func (m *Metrics) RecordSimulation(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.simulationsTotal.WithLabelValues(status).Inc()
	m.simulationDuration.Observe(duration.Seconds())
}

// RecordExternalLookup records one external rate lookup attempt.
func (m *Metrics) RecordExternalLookup(outcome string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.externalLookupsTotal.WithLabelValues(outcome).Inc()
	m.externalLookupDuration.Observe(duration.Seconds())
}

// RecordEventDropped counts a domain event dropped on a full buffer.
func (m *Metrics) RecordEventDropped() {
	if m.registry == nil {
		return
	}
	m.eventsDropped.Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint, or a 404
// handler when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
