// Package metrics holds the Prometheus collectors shared by sessions, the
// reference engine and the license server.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cdmbridge"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	SessionOps      *prometheus.CounterVec
	SinkEvents      *prometheus.CounterVec
	DroppedMessages *prometheus.CounterVec
	Decrypts        *prometheus.CounterVec
	DecryptedBytes  prometheus.Counter
	OpenSessions    prometheus.Gauge
	LicenseRequests *prometheus.CounterVec
	LicenseLatency  prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session operations by name and result.",
		}, []string{"op", "result"}),
		SinkEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sink_events_total",
			Help:      "Events delivered to callback sinks by kind.",
		}, []string{"kind"}),
		DroppedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "dropped_messages_total",
			Help:      "Engine messages not forwarded to the sink, by message type.",
		}, []string{"type"}),
		Decrypts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decrypt",
			Name:      "samples_total",
			Help:      "Decrypted samples by result.",
		}, []string{"result"}),
		DecryptedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decrypt",
			Name:      "bytes_total",
			Help:      "Plaintext bytes produced.",
		}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "open_sessions",
			Help:      "Sessions currently open in the engine.",
		}),
		LicenseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "license",
			Name:      "requests_total",
			Help:      "License exchanges by outcome.",
		}, []string{"outcome"}),
		LicenseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "license",
			Name:      "request_duration_seconds",
			Help:      "License exchange latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionOps,
			m.SinkEvents,
			m.DroppedMessages,
			m.Decrypts,
			m.DecryptedBytes,
			m.OpenSessions,
			m.LicenseRequests,
			m.LicenseLatency,
		)
	}
	return m
}

// Op records the outcome of a session operation.
func (m *Metrics) Op(op, result string) {
	if m == nil {
		return
	}
	m.SessionOps.WithLabelValues(op, result).Inc()
}

// Sink records one delivery to a callback sink.
func (m *Metrics) Sink(kind string) {
	if m == nil {
		return
	}
	m.SinkEvents.WithLabelValues(kind).Inc()
}

// Dropped records an engine message that was not forwarded.
func (m *Metrics) Dropped(messageType string) {
	if m == nil {
		return
	}
	m.DroppedMessages.WithLabelValues(messageType).Inc()
}

// Decrypt records one decrypt call and, on success, its output size.
func (m *Metrics) Decrypt(result string, n int) {
	if m == nil {
		return
	}
	m.Decrypts.WithLabelValues(result).Inc()
	if n > 0 {
		m.DecryptedBytes.Add(float64(n))
	}
}

// SessionOpened and SessionClosed track engine sessions.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.OpenSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.OpenSessions.Dec()
	}
}

// License records a license exchange outcome and its latency in seconds.
func (m *Metrics) License(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.LicenseRequests.WithLabelValues(outcome).Inc()
	m.LicenseLatency.Observe(seconds)
}
