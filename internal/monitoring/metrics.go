package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds dispatcher and staging metrics. A nil *Metrics is valid
// and records nothing, so instrumentation stays optional.
type Metrics struct {
	OpsTotal     *prometheus.CounterVec
	OpDuration   *prometheus.HistogramVec
	PollsTotal   prometheus.Counter
	PollAttempts prometheus.Histogram
	StagedChunks prometheus.Counter
}

// New creates metrics registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates metrics registered on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxfs_operations_total",
				Help: "Dispatched operations by terminal status",
			},
			[]string{"status"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandboxfs_operation_duration_seconds",
				Help:    "End-to-end dispatched operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		PollsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandboxfs_polls_total",
				Help: "Scratch slot poll evaluations issued",
			},
		),
		PollAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sandboxfs_poll_attempts",
				Help:    "Polls needed per operation before a terminal status",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		StagedChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandboxfs_staged_chunks_total",
				Help: "Binary payload chunks staged into scratch storage",
			},
		),
	}
}

// ObserveOp records one finished operation.
func (m *Metrics) ObserveOp(status string, d time.Duration, polls int) {
	if m == nil {
		return
	}
	m.OpsTotal.WithLabelValues(status).Inc()
	m.OpDuration.WithLabelValues(status).Observe(d.Seconds())
	m.PollAttempts.Observe(float64(polls))
}

// IncPoll records one poll evaluation.
func (m *Metrics) IncPoll() {
	if m == nil {
		return
	}
	m.PollsTotal.Inc()
}

// AddStagedChunks records staged chunk writes.
func (m *Metrics) AddStagedChunks(n int) {
	if m == nil {
		return
	}
	m.StagedChunks.Add(float64(n))
}
