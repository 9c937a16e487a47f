// Package cursorstore persists warming-run cursors and progress counters
// in Redis. The warming engine itself never touches the cursor; the
// external driver owns it between batch calls, and this package is that
// driver's store.
package cursorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edgewarm/cache-warmer/pkg/workset"
)

// Default time-to-live for persisted run state. An interrupted run that
// is not resumed within this window is forgotten.
const defaultTTL = 24 * time.Hour

// Store persists the cursor and progress of one warming run, namespaced
// by run ID.
type Store struct {
	redis  *redis.Client
	runID  string
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a cursor store for the given run.
func New(redisClient *redis.Client, runID string, logger zerolog.Logger) (*Store, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}

	return &Store{
		redis:  redisClient,
		runID:  runID,
		ttl:    defaultTTL,
		logger: logger,
	}, nil
}

func (s *Store) cursorKey() string {
	return "warm:run:" + s.runID + ":cursor"
}

func (s *Store) warmedKey() string {
	return "warm:run:" + s.runID + ":warmed"
}

func (s *Store) batchesKey() string {
	return "warm:run:" + s.runID + ":batches"
}

// Load returns the persisted cursor, or nil when the run has no cursor
// yet (fresh run, or state expired).
func (s *Store) Load(ctx context.Context) (*workset.Key, error) {
	raw, err := s.redis.Get(ctx, s.cursorKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cursor: %w", err)
	}

	key, err := workset.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("stored cursor %q: %w", raw, err)
	}
	return &key, nil
}

// Save persists key as the run's cursor.
func (s *Store) Save(ctx context.Context, key workset.Key) error {
	if err := s.redis.Set(ctx, s.cursorKey(), key.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cursor: %w", err)
	}

	s.logger.Debug().
		Str("run_id", s.runID).
		Str("cursor", key.String()).
		Msg("Cursor persisted")
	return nil
}

// AddProgress accumulates per-batch progress counters for the run.
func (s *Store) AddProgress(ctx context.Context, warmed int) error {
	pipe := s.redis.TxPipeline()
	pipe.IncrBy(ctx, s.warmedKey(), int64(warmed))
	pipe.Incr(ctx, s.batchesKey())
	pipe.Expire(ctx, s.warmedKey(), s.ttl)
	pipe.Expire(ctx, s.batchesKey(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis update progress: %w", err)
	}
	return nil
}

// Progress returns the accumulated (warmed items, batches) counters.
// Both are zero for a fresh run.
func (s *Store) Progress(ctx context.Context) (warmed, batches int64, err error) {
	warmed, err = s.redis.Get(ctx, s.warmedKey()).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("redis get warmed: %w", err)
	}
	batches, err = s.redis.Get(ctx, s.batchesKey()).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("redis get batches: %w", err)
	}
	return warmed, batches, nil
}

// Clear removes all persisted state for the run. Called when the run
// completes.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.cursorKey(), s.warmedKey(), s.batchesKey()).Err(); err != nil {
		return fmt.Errorf("redis clear run state: %w", err)
	}
	return nil
}
