// Package warmer implements the cache-warming orchestration engine:
// resumable batch pagination over the warming work set, loading and
// access re-checking of work items, and the two warming strategies
// (edge-cache HTTP warming, render-cache warming under viewer
// impersonation).
package warmer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edgewarm/cache-warmer/pkg/logging"
	"github.com/edgewarm/cache-warmer/pkg/workset"
)

// WorkItem is a resolved, access-checked unit ready to warm.
type WorkItem struct {
	// Key is the work key the item was loaded for.
	Key workset.Key

	// Item is the resolved content item.
	Item Item

	// URL is the warm target for edge warming, with the canonical host
	// already applied. Empty for render warming.
	URL string

	// Viewer is the representative account to impersonate for render
	// warming. Nil for edge warming.
	Viewer Account
}

// strategy is the per-mode half of the engine: it produces the key
// universe, resolves keys into work items, and performs the warming.
type strategy interface {
	name() string
	enumerate(ctx context.Context) ([]workset.Key, error)
	load(ctx context.Context, key workset.Key) (WorkItem, error)
	warm(ctx context.Context, items []WorkItem) int
}

// Warmer drives one warming run. The work set is built lazily on first
// use and never rebuilt for the lifetime of the instance, so pagination
// stays stable even if the underlying catalog changes mid-run. A new run
// means a new instance; resuming an interrupted run means a new instance
// created with the interrupted run's Config.RunID, whose persisted
// cursor then continues against the freshly built snapshot (or halts, if
// the catalog changed underneath it).
//
// The external driver loop is:
//
//	keys := w.NextBatch(ctx, cursor)   // empty => stop
//	items := w.LoadBatch(ctx, keys)    // may be smaller than keys
//	n := w.WarmBatch(ctx, items)       // success count
//	cursor = &keys[len(keys)-1]        // persist between calls
type Warmer struct {
	cfg    Config
	runID  string
	logger zerolog.Logger
	strat  strategy

	buildOnce sync.Once
	set       *workset.Set
	buildErr  error
}

func newWarmer(cfg Config, strat strategy) *Warmer {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Warmer{
		cfg:   cfg,
		runID: runID,
		logger: logging.NewLogger("warmer").With().
			Str("run_id", runID).
			Str("strategy", strat.name()).
			Logger(),
		strat: strat,
	}
}

// RunID returns the unique identifier of this run. Drivers use it to
// namespace persisted cursors and progress counters.
func (w *Warmer) RunID() string {
	return w.runID
}

// ensureWorkSet builds the run's work-set snapshot exactly once.
func (w *Warmer) ensureWorkSet(ctx context.Context) (*workset.Set, error) {
	w.buildOnce.Do(func() {
		keys, err := w.strat.enumerate(ctx)
		if err != nil {
			w.buildErr = fmt.Errorf("enumerate work set: %w", err)
			return
		}
		w.set = workset.New(keys)
		warmWorkSetSize.WithLabelValues(w.strat.name()).Set(float64(w.set.Len()))
		w.logger.Info().
			Int("work_keys", w.set.Len()).
			Msg("Work set built")
	})
	return w.set, w.buildErr
}

// NextBatch returns up to BatchSize work keys strictly after cursor, in
// work-set order. A nil cursor starts from the beginning. An empty result
// means the run is complete — or the cursor is stale (not present in this
// run's snapshot), which deliberately halts the run instead of restarting
// it from zero.
func (w *Warmer) NextBatch(ctx context.Context, cursor *workset.Key) ([]workset.Key, error) {
	set, err := w.ensureWorkSet(ctx)
	if err != nil {
		return nil, err
	}

	page := set.Page(cursor, w.cfg.BatchSize)
	if len(page) == 0 && cursor != nil {
		w.logger.Debug().
			Str("cursor", cursor.String()).
			Msg("No batch for cursor (run complete or cursor stale)")
	}
	return page, nil
}

// LoadBatch resolves keys into warm-ready work items, preserving input
// order. Keys whose item no longer resolves, fails the final access
// re-check, or has no eligible viewer account are dropped without error:
// those are expected steady-state conditions, not failures.
func (w *Warmer) LoadBatch(ctx context.Context, keys []workset.Key) ([]WorkItem, error) {
	if _, err := w.ensureWorkSet(ctx); err != nil {
		return nil, err
	}

	items := make([]WorkItem, 0, len(keys))
	for _, key := range keys {
		item, err := w.strat.load(ctx, key)
		if err != nil {
			if isDrop(err) {
				w.dropKey(key, err)
				continue
			}
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// WarmBatch warms all items and returns the number of successes. Per-item
// failures are logged and counted as non-success; they never abort the
// batch. The count is the only signal surfaced to the driver.
func (w *Warmer) WarmBatch(ctx context.Context, items []WorkItem) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	success := w.strat.warm(ctx, items)

	warmBatchesTotal.WithLabelValues(w.strat.name()).Inc()
	w.logger.Info().
		Int("batch_size", len(items)).
		Int("warmed", success).
		Msg("Batch warmed")

	return success, nil
}

func (w *Warmer) dropKey(key workset.Key, err error) {
	reason := dropResolutionMiss
	if errors.Is(err, ErrNoViewer) {
		reason = dropNoEligibleViewer
	}
	warmDroppedKeysTotal.WithLabelValues(reason).Inc()

	// Debug, not error: drops are expected between enumeration and
	// warming.
	w.logger.Debug().
		Str("work_key", key.String()).
		Str("reason", reason).
		Msg("Work key dropped")
}
