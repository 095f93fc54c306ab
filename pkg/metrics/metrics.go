// Package metrics provides Prometheus instrumentation for the HTTP API and the
// workflow generator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentbuilder"

// Manager owns the metrics registry. A disabled Manager accepts every call and
// records nothing.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpConnections prometheus.Gauge

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with its own registry.
func NewManager(enabled bool) *Manager {
	if !enabled {
		return &Manager{}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{registry: registry, enabled: true}
	m.initHTTPMetrics()
	m.initGeneratorMetrics()
	return m
}

// Enabled returns whether metrics collection is enabled.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Registry exposes the underlying registry for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)
	m.httpConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Current number of in-flight HTTP requests",
		},
	)

	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.httpConnections)
}

func (m *Manager) initGeneratorMetrics() {
	m.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Workflow generation attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	m.generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Workflow generation latency in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	m.registry.MustRegister(m.generations, m.generationDuration)
}

// RecordHTTPRequest records an HTTP request by method, route template and status.
func (m *Manager) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveRequests increments the in-flight request gauge.
func (m *Manager) IncActiveRequests() {
	if !m.enabled {
		return
	}
	m.httpConnections.Inc()
}

// DecActiveRequests decrements the in-flight request gauge.
func (m *Manager) DecActiveRequests() {
	if !m.enabled {
		return
	}
	m.httpConnections.Dec()
}

// RecordGeneration records one generator attempt.
func (m *Manager) RecordGeneration(source, outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.generations.WithLabelValues(source, outcome).Inc()
	m.generationDuration.WithLabelValues(source).Observe(duration.Seconds())
}
