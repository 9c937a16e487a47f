package warmer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Strategy label values.
const (
	strategyCDN    = "cdn"
	strategyRender = "render"
)

// Drop reason label values.
const (
	dropResolutionMiss   = "resolution_miss"
	dropNoEligibleViewer = "no_eligible_viewer"
)

// Prometheus metrics for warming operations.
var (
	warmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warm_requests_total",
		Help: "Total warm operations by strategy and result status",
	}, []string{"strategy", "status"})

	warmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warm_duration_seconds",
		Help:    "Duration of individual warm operations by strategy",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"strategy"})

	warmBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warm_batches_total",
		Help: "Total warmed batches by strategy",
	}, []string{"strategy"})

	warmDroppedKeysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warm_dropped_keys_total",
		Help: "Work keys dropped during loading by reason",
	}, []string{"reason"})

	warmWorkSetSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "warm_workset_size",
		Help: "Number of work keys in the current run's work set",
	}, []string{"strategy"})
)
