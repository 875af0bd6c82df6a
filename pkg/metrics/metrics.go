package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "essay_coach"

// Metrics groups the counters and histograms recorded by the chat core.
type Metrics struct {
	Turns                *prometheus.CounterVec
	ModelLatency         *prometheus.HistogramVec
	ConversationsCreated prometheus.Counter
	ConversationsDeleted prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_latency_seconds",
			Help:      "Latency of model calls by mode.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"mode"}),
		ConversationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_created_total",
			Help:      "Conversations persisted for the first time.",
		}),
		ConversationsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_deleted_total",
			Help:      "Conversations removed by administrators.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Turns, m.ModelLatency, m.ConversationsCreated, m.ConversationsDeleted)
	}
	return m
}

func (m *Metrics) ObserveTurn(mode, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(mode, outcome).Inc()
	if latency > 0 {
		m.ModelLatency.WithLabelValues(mode).Observe(latency.Seconds())
	}
}

func (m *Metrics) ConversationCreated() {
	if m == nil {
		return
	}
	m.ConversationsCreated.Inc()
}

func (m *Metrics) ConversationDeleted(n int) {
	if m == nil {
		return
	}
	m.ConversationsDeleted.Add(float64(n))
}
