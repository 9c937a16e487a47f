package warmer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgewarm/cache-warmer/pkg/dispatch"
	"github.com/edgewarm/cache-warmer/pkg/logging"
	"github.com/edgewarm/cache-warmer/pkg/workset"
)

// NewCDN creates a warmer that heats the edge (reverse-proxy) cache by
// issuing one HTTP GET per item against its canonical URL. Requests run
// concurrently up to cfg.MaxConcurrentRequests using wave barriers.
func NewCDN(cfg Config, store ItemStore) (*Warmer, error) {
	if store == nil {
		return nil, fmt.Errorf("item store is required")
	}

	cfg = cfg.withDefaults()

	transport := http.DefaultTransport
	if cfg.InsecureSkipTLSVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	strat := &cdnStrategy{
		store: store,
		cfg:   cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout,
		},
		logger: logging.NewLogger("cdn-warm"),
	}
	return newWarmer(cfg, strat), nil
}

// cdnStrategy warms the edge cache over HTTP. 2xx and 3xx responses count
// as success; status >= 400 and transport errors are failures. No
// retries: a failed warm for one item is logged and does not affect any
// other item.
type cdnStrategy struct {
	store  ItemStore
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

func (s *cdnStrategy) name() string { return strategyCDN }

// enumerate lists eligible items with access checks applied: the edge
// cache serves anonymous traffic, so only anonymously-visible items are
// worth warming.
func (s *cdnStrategy) enumerate(ctx context.Context) ([]workset.Key, error) {
	ids, err := s.store.Query(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	keys := make([]workset.Key, len(ids))
	for i, id := range ids {
		keys[i] = workset.Key{ItemID: id}
	}
	return keys, nil
}

// load resolves the item, re-checks anonymous access (cheap guard against
// drift since enumeration), and precomputes the canonical warm URL.
func (s *cdnStrategy) load(ctx context.Context, key workset.Key) (WorkItem, error) {
	item, err := s.store.Resolve(ctx, key.ItemID)
	if err != nil {
		return WorkItem{}, err
	}

	if !item.ViewableBy(nil) {
		return WorkItem{}, fmt.Errorf("item %s: %w", key.ItemID, ErrAccessDenied)
	}

	target, err := RewriteHost(item.CanonicalURL(), s.cfg.CanonicalHost)
	if err != nil {
		// A malformed canonical URL makes the item unwarmable; treat it
		// like any other resolution drift.
		s.logger.Warn().
			Err(err).
			Str("item_id", key.ItemID).
			Msg("Unusable canonical URL")
		return WorkItem{}, fmt.Errorf("item %s: %w", key.ItemID, ErrNotFound)
	}

	return WorkItem{Key: key, Item: item, URL: target}, nil
}

// warm sends one GET per item with a hard concurrency ceiling, then
// optionally sleeps once for the whole batch before returning control to
// the driver.
func (s *cdnStrategy) warm(ctx context.Context, items []WorkItem) int {
	outcomes := dispatch.Run(ctx, len(items), s.cfg.MaxConcurrentRequests,
		func(ctx context.Context, i int) error {
			return s.warmOne(ctx, items[i])
		})

	success := 0
	for _, err := range outcomes {
		if err == nil {
			success++
		}
	}

	if s.cfg.SleepBetweenBatches > 0 {
		select {
		case <-time.After(s.cfg.SleepBetweenBatches):
		case <-ctx.Done():
		}
	}

	return success
}

// warmOne performs a single warm request. The request itself is the
// point; the body is drained and discarded so the connection can be
// reused.
func (s *cdnStrategy) warmOne(ctx context.Context, it WorkItem) error {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, it.URL, nil)
	if err != nil {
		return s.fail(it, &TransportError{URL: it.URL, Err: err}, "request_error")
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	warmDuration.WithLabelValues(strategyCDN).Observe(time.Since(start).Seconds())

	if err != nil {
		return s.fail(it, &TransportError{URL: it.URL, Err: err}, "network_error")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return s.fail(it,
			&TransportError{URL: it.URL, StatusCode: resp.StatusCode},
			fmt.Sprintf("%d", resp.StatusCode))
	}

	warmRequestsTotal.WithLabelValues(strategyCDN, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	s.logger.Debug().
		Str("item_id", it.Key.ItemID).
		Str("url", it.URL).
		Int("status", resp.StatusCode).
		Msg("Edge cache warmed")
	return nil
}

// fail logs a per-item warm failure with structured context and records
// the status metric. The failure stays contained to this item.
func (s *cdnStrategy) fail(it WorkItem, terr *TransportError, status string) error {
	warmRequestsTotal.WithLabelValues(strategyCDN, status).Inc()
	s.logger.Error().
		Err(terr).
		Str("item_id", it.Key.ItemID).
		Str("url", it.URL).
		Int("status_code", terr.StatusCode).
		Msg("Edge warm failed")
	return terr
}
