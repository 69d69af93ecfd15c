package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the query engine's Prometheus metrics.
type Metrics struct {
	SearchesTotal  *prometheus.CounterVec
	SourceFailures *prometheus.CounterVec
	Duration       prometheus.Histogram
}

// New creates and registers all query metrics.
func New() *Metrics {
	return &Metrics{
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drugwatch_query_searches_total",
			Help: "Unified searches by outcome (ok, partial, rejected)",
		}, []string{"outcome"}),
		SourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drugwatch_query_source_failures_total",
			Help: "Per-source failures during fan-out",
		}, []string{"source"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "drugwatch_query_duration_seconds",
			Help:    "End-to-end unified search latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// ObserveDuration records one search's latency.
func (m *Metrics) ObserveDuration(d time.Duration) {
	m.Duration.Observe(d.Seconds())
}
