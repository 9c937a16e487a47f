package rendercache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// renderCacheHits tracks cache hits.
	renderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warm_render_cache_hits_total",
			Help: "Total number of render cache hits",
		},
	)

	// renderCacheMisses tracks cache misses.
	renderCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warm_render_cache_misses_total",
			Help: "Total number of render cache misses",
		},
	)

	// renderCacheEvictions tracks LRU evictions.
	renderCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warm_render_cache_evictions_total",
			Help: "Total number of render cache evictions",
		},
	)

	// renderCacheEntries tracks the current entry count.
	renderCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warm_render_cache_entries",
			Help: "Current number of cached renders",
		},
	)
)
