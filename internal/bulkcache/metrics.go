package bulkcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drugwatch_bulkcache_loads_total",
		Help: "Bulk cache warm-up attempts by outcome",
	}, []string{"outcome"})

	recordsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drugwatch_bulkcache_records",
		Help: "Primary records in the current bulk snapshot",
	})
)
