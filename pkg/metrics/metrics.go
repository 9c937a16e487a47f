// Package metrics provides the centralized Prometheus metrics reference
// for the cache warmer. All metrics are defined in their respective
// packages (warmer, dispatch, rendercache) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the cache warmer.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Warming Metrics (pkg/warmer):
//   - warm_requests_total{strategy, status} (Counter): Warm operations by
//     strategy ("cdn", "render") and result ("200", "404",
//     "network_error", "request_error", "render_error", "success")
//   - warm_duration_seconds{strategy} (Histogram): Duration of individual
//     warm operations
//   - warm_batches_total{strategy} (Counter): Warmed batches
//   - warm_dropped_keys_total{reason} (Counter): Keys dropped during
//     loading ("resolution_miss", "no_eligible_viewer")
//   - warm_workset_size{strategy} (Gauge): Work keys in the current run
//
// Dispatch Metrics (pkg/dispatch):
//   - warm_dispatch_in_flight (Gauge): Warm operations currently in flight
//   - warm_dispatch_waves_total (Counter): Dispatch waves executed
//
// Render Cache Metrics (pkg/rendercache):
//   - warm_render_cache_hits_total (Counter): Render cache hits
//   - warm_render_cache_misses_total (Counter): Render cache misses
//   - warm_render_cache_evictions_total (Counter): LRU evictions
//   - warm_render_cache_entries (Gauge): Cached renders
//
// Example Prometheus Queries:
//
//   # Warm Success Rate (CDN)
//   sum(rate(warm_requests_total{strategy="cdn",status=~"2..|3.."}[5m])) /
//   sum(rate(warm_requests_total{strategy="cdn"}[5m]))
//
//   # Concurrency Ceiling Check
//   max_over_time(warm_dispatch_in_flight[5m])
//
//   # Drop Rate by Reason
//   rate(warm_dropped_keys_total[5m])
//
//   # P95 Warm Latency
//   histogram_quantile(0.95, rate(warm_duration_seconds_bucket[5m]))
