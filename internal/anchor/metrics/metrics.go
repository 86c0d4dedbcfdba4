package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the anchor subsystem.
type Metrics struct {
	BatchesSubmitted  prometheus.Counter
	BatchesConfirmed  prometheus.Counter
	BatchesFailed     prometheus.Counter
	BatchesDeadLetter prometheus.Counter
	BatchesDeferred   prometheus.Counter
	SubmitDuration    prometheus.Histogram
	PollDuration      prometheus.Histogram
}

// New creates and registers anchor metrics.
func New() *Metrics {
	return &Metrics{
		BatchesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesto_anchor_batches_submitted_total",
			Help: "Total anchor batches submitted to the ledger",
		}),
		BatchesConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesto_anchor_batches_confirmed_total",
			Help: "Total anchor batches confirmed by the ledger",
		}),
		BatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesto_anchor_batches_failed_total",
			Help: "Total anchor batch submission failures (pre dead-letter)",
		}),
		BatchesDeadLetter: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesto_anchor_batches_dead_lettered_total",
			Help: "Total anchor batches dead-lettered after retry exhaustion",
		}),
		BatchesDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesto_anchor_batches_deferred_total",
			Help: "Total submissions accepted while writes were deferred or disabled",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attesto_anchor_submit_duration_seconds",
			Help:    "Latency of ledger submissions",
			Buckets: prometheus.DefBuckets,
		}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attesto_anchor_poll_duration_seconds",
			Help:    "Duration of anchor worker poll runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
