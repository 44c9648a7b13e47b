// Package metrics exposes the session engine's Prometheus collectors.
//
// All recording methods are safe on a nil *Metrics, so components can run
// without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	registry *prometheus.Registry

	// Session lifecycle
	SessionsOpen    *prometheus.GaugeVec
	SessionsStarted prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	StartRejected   *prometheus.CounterVec

	// Utterance pipeline
	Utterances       *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	CycleDuration    prometheus.Histogram
	LanguageDetected *prometheus.CounterVec

	// Sweeper
	SweepTransitions *prometheus.CounterVec

	// Live channel
	WebsocketClients prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "companion"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,

		SessionsOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_open",
				Help:      "Open sessions by state",
			},
			[]string{"state"},
		),
		SessionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_started_total",
				Help:      "Sessions started",
			},
		),
		SessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Sessions ended by reason",
			},
			[]string{"reason"},
		),
		StartRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_start_rejected_total",
				Help:      "Rejected session starts by error kind",
			},
			[]string{"kind"},
		),
		Utterances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "utterances_total",
				Help:      "Processed utterances by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "End-to-end utterance cycle latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 10, 30, 60},
			},
		),
		LanguageDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "language_detected_total",
				Help:      "Detected utterance languages",
			},
			[]string{"language", "fallback"},
		),
		SweepTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_transitions_total",
				Help:      "Session transitions applied by the idle sweeper",
			},
			[]string{"transition"},
		),
		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_clients",
				Help:      "Connected websocket clients",
			},
		),
	}

	registry.MustRegister(
		m.SessionsOpen,
		m.SessionsStarted,
		m.SessionsEnded,
		m.StartRejected,
		m.Utterances,
		m.StageDuration,
		m.CycleDuration,
		m.LanguageDetected,
		m.SweepTransitions,
		m.WebsocketClients,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted records a new session entering state.
func (m *Metrics) SessionStarted(state string) {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionsOpen.WithLabelValues(state).Inc()
}

// SessionRestored records a session reloaded from a checkpoint.
func (m *Metrics) SessionRestored(state string) {
	if m == nil {
		return
	}
	m.SessionsOpen.WithLabelValues(state).Inc()
}

// SessionMoved records a state transition of an open session.
func (m *Metrics) SessionMoved(from, to string) {
	if m == nil {
		return
	}
	m.SessionsOpen.WithLabelValues(from).Dec()
	m.SessionsOpen.WithLabelValues(to).Inc()
}

// SessionEnded records a session leaving state for the given reason.
func (m *Metrics) SessionEnded(from, reason string) {
	if m == nil {
		return
	}
	m.SessionsOpen.WithLabelValues(from).Dec()
	m.SessionsEnded.WithLabelValues(reason).Inc()
}

// StartRejectedWith records a rejected start.
func (m *Metrics) StartRejectedWith(kind string) {
	if m == nil {
		return
	}
	m.StartRejected.WithLabelValues(kind).Inc()
}

// Utterance records the outcome of one cycle.
func (m *Metrics) Utterance(outcome string) {
	if m == nil {
		return
	}
	m.Utterances.WithLabelValues(outcome).Inc()
}

// Stage records one stage latency.
func (m *Metrics) Stage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Cycle records the end-to-end latency of a successful cycle.
func (m *Metrics) Cycle(d time.Duration) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
}

// Language records a detection result.
func (m *Metrics) Language(code string, fallback bool) {
	if m == nil {
		return
	}
	fb := "false"
	if fallback {
		fb = "true"
	}
	m.LanguageDetected.WithLabelValues(code, fb).Inc()
}

// Sweep records a sweeper transition such as "active_idle".
func (m *Metrics) Sweep(transition string) {
	if m == nil {
		return
	}
	m.SweepTransitions.WithLabelValues(transition).Inc()
}

// ClientConnected adjusts the websocket client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Add(float64(delta))
}
