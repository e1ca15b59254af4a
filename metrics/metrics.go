// Package metrics exposes the runtime adapter's Prometheus instrumentation:
// session lifecycle counters, turn outcome counters and latency, error
// counts by code, and availability-probe results.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles one registry's worth of collectors. Each Registry (the
// runtime type, not the Prometheus one) can own its own Metrics instance so
// that constructing more than one adapter in the same process -- as tests
// routinely do -- never collides on Prometheus's global default registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated   *prometheus.CounterVec
	sessionsClosed    *prometheus.CounterVec
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	probeTotal        *prometheus.CounterVec
}

// New builds a fresh Metrics bundle on its own Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_sessions_created_total",
			Help: "Total number of agent sessions successfully created.",
		}, []string{"backend"}),
		sessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_sessions_closed_total",
			Help: "Total number of agent sessions closed, by reason.",
		}, []string{"backend", "reason"}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_turns_total",
			Help: "Total number of turns run, by terminal stop reason.",
		}, []string{"backend", "stop_reason"}),
		turnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acp_turn_duration_seconds",
			Help:    "Turn duration from session/prompt send to terminal event.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_errors_total",
			Help: "Total number of adapter errors, by error code.",
		}, []string{"backend", "code"}),
		probeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_probe_total",
			Help: "Total number of availability probes, by result.",
		}, []string{"backend", "result"}),
	}
}

// Handler returns an HTTP handler serving this bundle's collectors.
// Nil-safe: a nil *Metrics serves an empty page rather than panicking a
// host that wired up /metrics unconditionally.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionCreated increments the session-created counter.
func (m *Metrics) RecordSessionCreated(backend string) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(backend).Inc()
}

// RecordSessionClosed increments the session-closed counter for reason.
func (m *Metrics) RecordSessionClosed(backend, reason string) {
	if m == nil {
		return
	}
	m.sessionsClosed.WithLabelValues(backend, reason).Inc()
}

// RecordTurn increments the turn counter and observes its duration.
func (m *Metrics) RecordTurn(backend, stopReason string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(backend, stopReason).Inc()
	m.turnDuration.WithLabelValues(backend).Observe(durationSeconds)
}

// RecordError increments the error counter for code.
func (m *Metrics) RecordError(backend, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(backend, code).Inc()
}

// RecordProbe increments the probe counter for result ("ok" or "failed").
func (m *Metrics) RecordProbe(backend, result string) {
	if m == nil {
		return
	}
	m.probeTotal.WithLabelValues(backend, result).Inc()
}
