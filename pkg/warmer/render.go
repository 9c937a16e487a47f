package warmer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgewarm/cache-warmer/pkg/logging"
	"github.com/edgewarm/cache-warmer/pkg/variant"
	"github.com/edgewarm/cache-warmer/pkg/workset"
)

// NewRender creates a warmer that heats the internal render cache by
// forcing a full render of each item once per distinct viewer variant,
// impersonating a representative account for that variant.
func NewRender(
	cfg Config,
	store ItemStore,
	variants variant.Source,
	selector AccountSelector,
	impersonator Impersonator,
	renderer Renderer,
) (*Warmer, error) {
	if store == nil {
		return nil, fmt.Errorf("item store is required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant source is required")
	}
	if selector == nil {
		return nil, fmt.Errorf("account selector is required")
	}
	if impersonator == nil {
		return nil, fmt.Errorf("impersonator is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}

	strat := &renderStrategy{
		store:        store,
		variants:     variants,
		selector:     selector,
		impersonator: impersonator,
		renderer:     renderer,
		byHash:       make(map[string]variant.Variant),
		logger:       logging.NewLogger("render-warm"),
	}
	return newWarmer(cfg.withDefaults(), strat), nil
}

// renderStrategy warms the render cache. Strictly sequential: the
// impersonation context is process-wide mutable state, and two
// overlapping render calls under different viewers would corrupt access
// checks and output for both. At most one impersonation context is
// active at any instant, restored before control returns.
type renderStrategy struct {
	store        ItemStore
	variants     variant.Source
	selector     AccountSelector
	impersonator Impersonator
	renderer     Renderer
	logger       zerolog.Logger

	// byHash resolves a work key's variant hash back to its role set.
	// Populated during enumerate, which runs inside the work-set build
	// (once per run), before any load.
	byHash map[string]variant.Variant
}

func (s *renderStrategy) name() string { return strategyRender }

// enumerate produces the (item x viewer variant) cross product. Items are
// listed without access checks: render warming serves authenticated
// variants too, and the per-variant viewability check happens at load
// time against the representative account. An empty variant set yields an
// empty work set — warming with no impersonation context would be
// meaningless.
func (s *renderStrategy) enumerate(ctx context.Context) ([]workset.Key, error) {
	vars, err := s.variants.ListVariants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list viewer variants: %w", err)
	}
	if len(vars) == 0 {
		s.logger.Warn().Msg("No viewer variants exist, nothing to warm")
		return nil, nil
	}

	// Variant order must be deterministic for stable pagination.
	sort.Slice(vars, func(i, j int) bool { return vars[i].Hash < vars[j].Hash })
	for _, v := range vars {
		s.byHash[v.Hash] = v
	}

	ids, err := s.store.Query(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	keys := make([]workset.Key, 0, len(ids)*len(vars))
	for _, id := range ids {
		for _, v := range vars {
			keys = append(keys, workset.Key{ItemID: id, VariantHash: v.Hash})
		}
	}
	return keys, nil
}

// load resolves the item and selects one concrete account able to view it
// in the key's variant. No qualifying account is not a failure — the key
// is dropped, there is simply nothing to warm for that variant.
func (s *renderStrategy) load(ctx context.Context, key workset.Key) (WorkItem, error) {
	v, ok := s.byHash[key.VariantHash]
	if !ok {
		return WorkItem{}, fmt.Errorf("variant %s: %w", key.VariantHash, ErrNotFound)
	}

	item, err := s.store.Resolve(ctx, key.ItemID)
	if err != nil {
		return WorkItem{}, err
	}

	account, err := s.selector.Select(ctx, v.Roles, func(a Account) bool {
		return item.ViewableBy(a)
	})
	if err != nil {
		return WorkItem{}, err
	}

	return WorkItem{Key: key, Item: item, Viewer: account}, nil
}

// warm renders each item under its representative viewer, one at a time.
func (s *renderStrategy) warm(ctx context.Context, items []WorkItem) int {
	success := 0
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		err := s.warmOne(ctx, it)
		warmDuration.WithLabelValues(strategyRender).Observe(time.Since(start).Seconds())

		if err != nil {
			warmRequestsTotal.WithLabelValues(strategyRender, "render_error").Inc()
			s.logger.Error().
				Err(err).
				Str("item_id", it.Key.ItemID).
				Str("variant_hash", it.Key.VariantHash).
				Str("viewer", it.Viewer.ID()).
				Msg("Render warm failed")
			continue
		}

		warmRequestsTotal.WithLabelValues(strategyRender, "success").Inc()
		success++
	}
	return success
}

// warmOne renders one item under impersonation. The previous viewer is
// restored on every exit path, including an error from the render call.
func (s *renderStrategy) warmOne(ctx context.Context, it WorkItem) error {
	restore, err := s.impersonator.SwitchTo(it.Viewer)
	if err != nil {
		return &RenderError{
			ItemID:      it.Key.ItemID,
			VariantHash: it.Key.VariantHash,
			Err:         fmt.Errorf("impersonate %s: %w", it.Viewer.ID(), err),
		}
	}
	defer restore()

	out, err := s.renderer.RenderFull(ctx, it.Item)
	if err != nil {
		return &RenderError{ItemID: it.Key.ItemID, VariantHash: it.Key.VariantHash, Err: err}
	}
	if len(out) == 0 {
		return &RenderError{
			ItemID:      it.Key.ItemID,
			VariantHash: it.Key.VariantHash,
			Err:         errors.New("empty render output"),
		}
	}

	s.logger.Debug().
		Str("item_id", it.Key.ItemID).
		Str("variant_hash", it.Key.VariantHash).
		Str("viewer", it.Viewer.ID()).
		Int("output_bytes", len(out)).
		Msg("Render cache warmed")
	return nil
}
