package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments a History reports to.
type Metrics struct {
	commits  prometheus.Counter
	reverts  *prometheus.CounterVec
	failures *prometheus.CounterVec
	dropped  prometheus.Counter
	entries  *prometheus.GaugeVec
	memory   prometheus.Gauge
}

// NewMetrics creates history instruments registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		commits: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavestorm_history_commits_total",
			Help: "Total number of transactions committed to the undo stack",
		}),
		reverts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavestorm_history_reverts_total",
			Help: "Total number of undo and redo operations",
		}, []string{"direction"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavestorm_history_failures_total",
			Help: "Total number of failed transaction starts, undos and redos",
		}, []string{"operation"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavestorm_history_dropped_total",
			Help: "Number of entries dropped to stay within limits",
		}),
		entries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wavestorm_history_entries",
			Help: "Current number of entries on each stack",
		}, []string{"stack"}),
		memory: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavestorm_history_memory_bytes",
			Help: "Undo memory currently held by both stacks",
		}),
	}
}

// WithMetrics makes the history report to m.
func WithMetrics(m *Metrics) Option {
	return func(h *History) {
		h.metrics = m
	}
}

// The helpers below accept a nil receiver so a History without metrics
// needs no checks.

func (m *Metrics) commit() {
	if m != nil {
		m.commits.Inc()
	}
}

func (m *Metrics) revert(direction string) {
	if m != nil {
		m.reverts.WithLabelValues(direction).Inc()
	}
}

func (m *Metrics) fail(operation string) {
	if m != nil {
		m.failures.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) drop() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) observe(undo, redo int, memory uint64) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues("undo").Set(float64(undo))
	m.entries.WithLabelValues("redo").Set(float64(redo))
	m.memory.Set(float64(memory))
}
