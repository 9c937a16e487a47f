package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/edgewarm/cache-warmer/internal/catalog"
	"github.com/edgewarm/cache-warmer/internal/testutil"
	"github.com/edgewarm/cache-warmer/pkg/cursorstore"
	"github.com/edgewarm/cache-warmer/pkg/warmer"
	"github.com/edgewarm/cache-warmer/pkg/workset"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func manifestEntries(n int) []catalog.Entry {
	entries := make([]catalog.Entry, n)
	for i := range entries {
		id := fmt.Sprintf("page-%d", i+1)
		entries[i] = catalog.Entry{
			ID:     id,
			URL:    fmt.Sprintf("http://internal.lb/content/%s", id),
			Public: true,
		}
	}
	return entries
}

// TestFullWarmingRun drives a complete run: enumerate, page in batches,
// warm against the origin, persist the cursor after every batch, and
// clear the run state on completion.
func TestFullWarmingRun(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	origin := testutil.NewMockOrigin()
	defer origin.Close()

	const n = 7
	store, err := catalog.FromEntries(manifestEntries(n))
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	cfg := warmer.DefaultConfig()
	cfg.BatchSize = 3
	cfg.MaxConcurrentRequests = 2
	cfg.CanonicalHost = origin.Host()

	w, err := warmer.NewCDN(cfg, store)
	if err != nil {
		t.Fatalf("Failed to create warmer: %v", err)
	}

	ctx := context.Background()
	cursors, err := cursorstore.New(redisClient, w.RunID(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	var cursor *workset.Key
	var warmed, batches int
	for {
		keys, err := w.NextBatch(ctx, cursor)
		if err != nil {
			t.Fatalf("NextBatch failed: %v", err)
		}
		if len(keys) == 0 {
			break
		}
		batches++

		items, err := w.LoadBatch(ctx, keys)
		if err != nil {
			t.Fatalf("LoadBatch failed: %v", err)
		}

		count, err := w.WarmBatch(ctx, items)
		if err != nil {
			t.Fatalf("WarmBatch failed: %v", err)
		}
		warmed += count

		last := keys[len(keys)-1]
		cursor = &last

		if err := cursors.Save(ctx, last); err != nil {
			t.Fatalf("Save cursor failed: %v", err)
		}
		if err := cursors.AddProgress(ctx, count); err != nil {
			t.Fatalf("AddProgress failed: %v", err)
		}
	}

	if warmed != n {
		t.Errorf("Warmed = %d, want %d", warmed, n)
	}
	if batches != 3 {
		t.Errorf("Batches = %d, want 3 (7 items / batch size 3)", batches)
	}
	if origin.RequestCount() != n {
		t.Errorf("Origin requests = %d, want %d", origin.RequestCount(), n)
	}

	gotWarmed, gotBatches, err := cursors.Progress(ctx)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if gotWarmed != int64(n) || gotBatches != 3 {
		t.Errorf("Persisted progress = (%d, %d), want (%d, 3)", gotWarmed, gotBatches, n)
	}

	if err := cursors.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	loaded, err := cursors.Load(ctx)
	if err != nil {
		t.Fatalf("Load after clear failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("Cursor after clear = %v, want nil", loaded)
	}
}

// TestResumeAfterInterruption simulates a driver crash between batches:
// a second driver process — a fresh Warmer instance created with the
// interrupted run's ID — loads the persisted cursor and finishes the run
// without re-warming what the first process already covered.
func TestResumeAfterInterruption(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	origin := testutil.NewMockOrigin()
	defer origin.Close()

	const n = 6
	store, err := catalog.FromEntries(manifestEntries(n))
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	cfg := warmer.DefaultConfig()
	cfg.BatchSize = 2
	cfg.CanonicalHost = origin.Host()

	w1, err := warmer.NewCDN(cfg, store)
	if err != nil {
		t.Fatalf("Failed to create warmer: %v", err)
	}

	ctx := context.Background()
	cursors1, err := cursorstore.New(redisClient, w1.RunID(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	// First driver: one batch, then crash.
	keys, err := w1.NextBatch(ctx, nil)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	items, err := w1.LoadBatch(ctx, keys)
	if err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	count, err := w1.WarmBatch(ctx, items)
	if err != nil {
		t.Fatalf("WarmBatch failed: %v", err)
	}
	if err := cursors1.Save(ctx, keys[len(keys)-1]); err != nil {
		t.Fatalf("Save cursor failed: %v", err)
	}
	if err := cursors1.AddProgress(ctx, count); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}

	// Second driver process: new Warmer instance, same run ID. Only the
	// run ID crosses the process boundary; the cursor comes from Redis.
	resumeCfg := cfg
	resumeCfg.RunID = w1.RunID()
	w2, err := warmer.NewCDN(resumeCfg, store)
	if err != nil {
		t.Fatalf("Failed to create resuming warmer: %v", err)
	}
	if w2.RunID() != w1.RunID() {
		t.Fatalf("Resuming run ID = %q, want %q", w2.RunID(), w1.RunID())
	}

	cursors2, err := cursorstore.New(redisClient, w2.RunID(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}
	cursor, err := cursors2.Load(ctx)
	if err != nil {
		t.Fatalf("Load cursor failed: %v", err)
	}
	if cursor == nil {
		t.Fatal("Expected a persisted cursor to resume from")
	}

	warmed := count
	for {
		keys, err := w2.NextBatch(ctx, cursor)
		if err != nil {
			t.Fatalf("NextBatch failed: %v", err)
		}
		if len(keys) == 0 {
			break
		}

		items, err := w2.LoadBatch(ctx, keys)
		if err != nil {
			t.Fatalf("LoadBatch failed: %v", err)
		}
		n, err := w2.WarmBatch(ctx, items)
		if err != nil {
			t.Fatalf("WarmBatch failed: %v", err)
		}
		warmed += n

		last := keys[len(keys)-1]
		cursor = &last
	}

	if warmed != n {
		t.Errorf("Warmed = %d, want %d", warmed, n)
	}
	// Resume must not repeat the first batch.
	if origin.RequestCount() != n {
		t.Errorf("Origin requests = %d, want %d (no re-warming on resume)", origin.RequestCount(), n)
	}
}

// TestResumeAgainstChangedCatalogHalts covers the other half of the
// cross-process resume contract: when the resuming process builds a
// snapshot that no longer contains the persisted cursor, the run halts
// instead of restarting from the top.
func TestResumeAgainstChangedCatalogHalts(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	origin := testutil.NewMockOrigin()
	defer origin.Close()

	store, err := catalog.FromEntries(manifestEntries(4))
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	cfg := warmer.DefaultConfig()
	cfg.BatchSize = 2
	cfg.CanonicalHost = origin.Host()

	w1, err := warmer.NewCDN(cfg, store)
	if err != nil {
		t.Fatalf("Failed to create warmer: %v", err)
	}

	ctx := context.Background()
	cursors, err := cursorstore.New(redisClient, w1.RunID(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	keys, err := w1.NextBatch(ctx, nil)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if _, err := w1.LoadBatch(ctx, keys); err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	if err := cursors.Save(ctx, keys[len(keys)-1]); err != nil {
		t.Fatalf("Save cursor failed: %v", err)
	}

	// The catalog changed between processes: the cursor item is gone.
	changed, err := catalog.FromEntries(manifestEntries(1))
	if err != nil {
		t.Fatalf("Failed to build changed catalog: %v", err)
	}

	resumeCfg := cfg
	resumeCfg.RunID = w1.RunID()
	w2, err := warmer.NewCDN(resumeCfg, changed)
	if err != nil {
		t.Fatalf("Failed to create resuming warmer: %v", err)
	}

	cursor, err := cursors.Load(ctx)
	if err != nil {
		t.Fatalf("Load cursor failed: %v", err)
	}
	page, err := w2.NextBatch(ctx, cursor)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("Page for stale cursor = %v, want empty (halt, not restart)", page)
	}
	if origin.RequestCount() != 0 {
		t.Errorf("Origin requests = %d, want 0 (halted run must not warm)", origin.RequestCount())
	}
}

// TestOriginOutageMidRun verifies a hard origin failure mid-run fails
// individual items but never the run.
func TestOriginOutageMidRun(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	origin := testutil.NewMockOrigin()
	defer origin.Close()

	const n = 4
	for i := 3; i <= n; i++ {
		origin.SetResponse(fmt.Sprintf("/content/page-%d", i), testutil.OriginResponse{
			StatusCode: 503,
			Delay:      5 * time.Millisecond,
		})
	}

	store, err := catalog.FromEntries(manifestEntries(n))
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	cfg := warmer.DefaultConfig()
	cfg.BatchSize = 4
	cfg.CanonicalHost = origin.Host()

	w, err := warmer.NewCDN(cfg, store)
	if err != nil {
		t.Fatalf("Failed to create warmer: %v", err)
	}

	ctx := context.Background()
	cursors, err := cursorstore.New(redisClient, w.RunID(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	keys, err := w.NextBatch(ctx, nil)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	items, err := w.LoadBatch(ctx, keys)
	if err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	warmed, err := w.WarmBatch(ctx, items)
	if err != nil {
		t.Fatalf("WarmBatch failed: %v", err)
	}

	if warmed != 2 {
		t.Errorf("Warmed = %d, want 2 (two 503s)", warmed)
	}
	if err := cursors.AddProgress(ctx, warmed); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}

	gotWarmed, gotBatches, err := cursors.Progress(ctx)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if gotWarmed != 2 || gotBatches != 1 {
		t.Errorf("Persisted progress = (%d, %d), want (2, 1)", gotWarmed, gotBatches)
	}
}
