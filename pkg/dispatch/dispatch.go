// Package dispatch runs independently-failing operations with a hard
// concurrency ceiling using wave barriers.
//
// The batch is partitioned into successive waves of at most C operations.
// A wave is launched, the dispatcher blocks until every operation in it has
// finished, then the next wave starts. Compared to a streaming worker pool
// this bounds peak outstanding load to exactly C at any instant and gives a
// simple back-pressure guarantee, at the cost of some idle time between
// waves. Predictable origin load wins over throughput here.
package dispatch

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for dispatch operations.
var (
	dispatchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warm_dispatch_in_flight",
		Help: "Number of warm operations currently in flight",
	})

	dispatchWavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warm_dispatch_waves_total",
		Help: "Total number of dispatch waves executed",
	})
)

// Clamp normalizes a configured concurrency ceiling. Non-positive values
// mean "no meaningful configuration" and fall back to serial execution.
func Clamp(maxConcurrent int) int {
	if maxConcurrent < 1 {
		return 1
	}
	return maxConcurrent
}

// Run executes n operations with at most maxConcurrent in flight.
//
// op is called with indexes 0..n-1; each call's error lands in the
// returned slice at the same index, so outcomes are collected without any
// shared mutable counter. A failed operation never affects another
// operation's execution or outcome. Run returns after all n operations
// have completed; cancelling ctx stops new waves from launching but
// in-flight operations run to completion.
func Run(ctx context.Context, n, maxConcurrent int, op func(ctx context.Context, i int) error) []error {
	outcomes := make([]error, n)
	if n == 0 {
		return outcomes
	}

	ceiling := Clamp(maxConcurrent)

	for start := 0; start < n; start += ceiling {
		if err := ctx.Err(); err != nil {
			log.Debug().
				Int("dispatched", start).
				Int("total", n).
				Msg("Dispatch stopping (context cancelled)")
			for i := start; i < n; i++ {
				outcomes[i] = err
			}
			return outcomes
		}

		end := start + ceiling
		if end > n {
			end = n
		}

		dispatchWavesTotal.Inc()

		// Wave barrier: every operation in [start, end) completes
		// before the next wave is admitted.
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				dispatchInFlight.Inc()
				defer dispatchInFlight.Dec()
				outcomes[i] = op(ctx, i)
			}(i)
		}
		wg.Wait()

		log.Debug().
			Int("wave_size", end-start).
			Int("dispatched", end).
			Int("total", n).
			Msg("Wave complete")
	}

	return outcomes
}
