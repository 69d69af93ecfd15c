package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drugwatch_fetch_requests_total",
		Help: "Outbound registry requests by host and outcome",
	}, []string{"host", "outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drugwatch_fetch_retries_total",
		Help: "Retried attempts after transient failures",
	})

	durationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drugwatch_fetch_duration_seconds",
		Help:    "Outbound request latency including retries",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"host"})
)
