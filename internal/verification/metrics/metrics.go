package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the verification engine.
type Metrics struct {
	Verifications *prometheus.CounterVec
	CheckFailures *prometheus.CounterVec
	Duration      prometheus.Histogram
	CheckLatency  *prometheus.HistogramVec
}

// New creates and registers verification metrics.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesto_verifications_total",
			Help: "Total credential verifications by outcome",
		}, []string{"status"}),
		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesto_verification_check_failures_total",
			Help: "Total failed verification checks by check name",
		}, []string{"check"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attesto_verification_duration_seconds",
			Help:    "End-to-end verification latency",
			Buckets: prometheus.DefBuckets,
		}),
		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attesto_verification_check_duration_seconds",
			Help:    "Latency of external verification checks",
			Buckets: prometheus.DefBuckets,
		}, []string{"check"}),
	}
}

// ObserveCheckLatency records one external check's latency.
func (m *Metrics) ObserveCheckLatency(check string, d time.Duration) {
	m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
}
