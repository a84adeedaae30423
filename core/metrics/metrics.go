// Package metrics groups the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "chatbot"

// Metrics groups all instruments used by the service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	InboundMessages *prometheus.CounterVec
	RuleOutcomes    *prometheus.CounterVec
	RuleLatency     *prometheus.HistogramVec
	CommitConflicts *prometheus.CounterVec
	OutboundSends   *prometheus.CounterVec
	OutboundLatency prometheus.Histogram
}

// New registers the instruments on a fresh registry together with the Go and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		InboundMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by transport and ingress decision.",
		}, []string{"transport", "status"}),
		RuleOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_rules_total",
			Help:      "Conversation rules applied by rule and outcome.",
		}, []string{"rule", "outcome"}),
		RuleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_rule_duration_ms",
			Help:      "Time to evaluate and commit a message in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"rule"}),
		CommitConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_commit_conflicts_total",
			Help:      "Session commits lost to a concurrent message for the same sender.",
		}, []string{"rule"}),
		OutboundSends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_sends_total",
			Help:      "Reply deliveries by transport, status and error kind.",
		}, []string{"transport", "status", "error_kind"}),
		OutboundLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbound_send_duration_ms",
			Help:      "Reply delivery latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000},
		}),
	}
}

// TrackSessions exports the value of fn as the sessions gauge.
func (m *Metrics) TrackSessions(namespace string, fn func() int) {
	if m == nil || fn == nil {
		return
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Conversation sessions held in memory.",
	}, func() float64 { return float64(fn()) })
}

// ObserveRule records the outcome and latency of one handled message.
func (m *Metrics) ObserveRule(rule, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.RuleOutcomes.WithLabelValues(rule, outcome).Inc()
	m.RuleLatency.WithLabelValues(rule).Observe(float64(took.Milliseconds()))
}

// ObserveConflict records a lost optimistic commit.
func (m *Metrics) ObserveConflict(rule string) {
	if m == nil {
		return
	}
	m.CommitConflicts.WithLabelValues(rule).Inc()
}

// ObserveInbound records what ingress decided for a message.
func (m *Metrics) ObserveInbound(transport, status string) {
	if m == nil {
		return
	}
	m.InboundMessages.WithLabelValues(transport, status).Inc()
}

// ObserveSend records one reply delivery attempt.
func (m *Metrics) ObserveSend(transport, status, errorKind string, took time.Duration) {
	if m == nil {
		return
	}
	m.OutboundSends.WithLabelValues(transport, status, errorKind).Inc()
	m.OutboundLatency.Observe(float64(took.Milliseconds()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
