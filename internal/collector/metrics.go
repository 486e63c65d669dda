package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Guliveer/unixstat-agent/internal/delta"
)

// engineMetrics are the collector's own health metrics.
type engineMetrics struct {
	duration     *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	resets       *prometheus.CounterVec
	cycleMetrics prometheus.Gauge
}

func newEngineMetrics(reg prometheus.Registerer, store *delta.Store) *engineMetrics {
	f := promauto.With(reg)
	f.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "unixstat_tracked_counters",
			Help: "Number of counter series held in the previous-sample store",
		},
		func() float64 { return float64(store.Len()) },
	)
	return &engineMetrics{
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unixstat_command_duration_seconds",
				Help:    "Time taken to run a command",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"command"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unixstat_collection_errors_total",
				Help: "Isolated collection failures",
			},
			[]string{"command", "kind"}, // execution, parse, catalog, value
		),
		resets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unixstat_counter_resets_total",
				Help: "Counters that went backwards between cycles",
			},
			[]string{"command"},
		),
		cycleMetrics: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "unixstat_cycle_metrics",
				Help: "Number of metrics produced by the last cycle",
			},
		),
	}
}
