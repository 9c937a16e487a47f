// Command warm-runner drives a cache-warming run over a catalog
// manifest: it pages through the work set in batches, warms each batch,
// and persists the cursor after every batch until no work remains.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edgewarm/cache-warmer/internal/catalog"
	"github.com/edgewarm/cache-warmer/pkg/cursorstore"
	"github.com/edgewarm/cache-warmer/pkg/logging"
	"github.com/edgewarm/cache-warmer/pkg/warmer"
	"github.com/edgewarm/cache-warmer/pkg/workset"
)

func main() {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getBool("LOG_PRETTY", false),
		Output: os.Stderr,
	})
	logger = logger.With().Str("component", "warm-runner").Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("Warming run failed")
	}
}

func run(logger zerolog.Logger) error {
	manifestPath := os.Getenv("WARM_MANIFEST")
	if manifestPath == "" {
		return fmt.Errorf("WARM_MANIFEST is required")
	}

	store, err := catalog.Load(manifestPath)
	if err != nil {
		return err
	}

	cfg := warmer.DefaultConfig()
	cfg.BatchSize = getInt("BATCH_SIZE", cfg.BatchSize)
	cfg.MaxConcurrentRequests = getInt("MAX_CONCURRENT_REQUESTS", cfg.MaxConcurrentRequests)
	cfg.SleepBetweenBatches = getDuration("SLEEP_BETWEEN_BATCHES", 0)
	cfg.ConnectTimeout = getDuration("CONNECT_TIMEOUT", cfg.ConnectTimeout)
	cfg.InsecureSkipTLSVerify = !getBool("VERIFY_TLS", true)
	cfg.CanonicalHost = getEnv("CANONICAL_HOST", "")
	// Resuming an interrupted run: rerun with the same WARM_RUN_ID and the
	// persisted cursor is picked up below.
	cfg.RunID = os.Getenv("WARM_RUN_ID")

	w, err := warmer.NewCDN(cfg, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Serve metrics and health alongside the run.
	metricsAddr := getEnv("METRICS_ADDR", ":9090")
	go serveMetrics(logger, metricsAddr)

	var cursors *cursorstore.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis at %s: %w", redisURL, err)
		}
		cursors, err = cursorstore.New(redisClient, w.RunID(), logger)
		if err != nil {
			return err
		}
		logger.Info().Str("redis", redisURL).Msg("Cursor persistence enabled")
	}

	var cursor *workset.Key
	if cursors != nil {
		cursor, err = cursors.Load(ctx)
		if err != nil {
			return err
		}
		if cursor != nil {
			warmedSoFar, batchesSoFar, err := cursors.Progress(ctx)
			if err != nil {
				return err
			}
			logger.Info().
				Str("run_id", w.RunID()).
				Str("cursor", cursor.String()).
				Int64("warmed_so_far", warmedSoFar).
				Int64("batches_so_far", batchesSoFar).
				Msg("Resuming interrupted run")
		}
	}

	dryRun := getBool("DRY_RUN", false)

	logger.Info().
		Str("run_id", w.RunID()).
		Str("manifest", manifestPath).
		Int("catalog_items", store.Len()).
		Int("batch_size", cfg.BatchSize).
		Int("max_concurrent", cfg.MaxConcurrentRequests).
		Str("canonical_host", cfg.CanonicalHost).
		Bool("dry_run", dryRun).
		Msg("Starting warming run")

	start := time.Now()
	totalKeys, totalWarmed, err := driveRun(ctx, logger, w, cursors, cursor, dryRun)
	if err != nil {
		return err
	}

	if cursors != nil {
		if err := cursors.Clear(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to clear run state")
		}
	}

	logger.Info().
		Str("run_id", w.RunID()).
		Int("keys", totalKeys).
		Int("warmed", totalWarmed).
		Dur("duration", time.Since(start)).
		Msg("Warming run complete")
	return nil
}

// driveRun is the queue-runner loop: next batch, load, warm, persist
// cursor, repeat until the warmer reports no more work. A non-nil
// starting cursor resumes a previous run; an empty first batch then
// means the run was already complete or the snapshot changed, and
// either way the loop stops rather than re-warming from the top.
func driveRun(ctx context.Context, logger zerolog.Logger, w *warmer.Warmer, cursors *cursorstore.Store, cursor *workset.Key, dryRun bool) (totalKeys, totalWarmed int, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return totalKeys, totalWarmed, err
		}

		keys, err := w.NextBatch(ctx, cursor)
		if err != nil {
			return totalKeys, totalWarmed, err
		}
		if len(keys) == 0 {
			return totalKeys, totalWarmed, nil
		}
		totalKeys += len(keys)

		items, err := w.LoadBatch(ctx, keys)
		if err != nil {
			return totalKeys, totalWarmed, err
		}

		warmed := 0
		if dryRun {
			for _, it := range items {
				logger.Info().
					Str("item_id", it.Key.ItemID).
					Str("url", it.URL).
					Msg("Would warm")
			}
		} else {
			warmed, err = w.WarmBatch(ctx, items)
			if err != nil {
				return totalKeys, totalWarmed, err
			}
			totalWarmed += warmed
		}

		last := keys[len(keys)-1]
		cursor = &last

		if cursors != nil {
			if err := cursors.Save(ctx, last); err != nil {
				return totalKeys, totalWarmed, err
			}
			if err := cursors.AddProgress(ctx, warmed); err != nil {
				return totalKeys, totalWarmed, err
			}
		}
	}
}

func serveMetrics(logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)

	logger.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
