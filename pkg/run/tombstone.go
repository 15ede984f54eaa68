package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cancelTombstoneTTL bounds how long a cancellation tombstone survives in
// Redis: long enough to outlast any in-flight asset task (pkg/queue's
// claimIdleTimeout is 2 minutes), short enough not to accumulate forever.
const cancelTombstoneTTL = 24 * time.Hour

func tombstoneKey(runID uuid.UUID) string {
	return fmt.Sprintf("escalatesafe:run:%s:cancelled", runID)
}

// publishTombstone marks runID cancelled for any worker mid-pipeline to
// observe at its next stage boundary (spec.md §5 Cancellation: "cancel
// publishes a cancellation tombstone").
func publishTombstone(ctx context.Context, rdb *redis.Client, runID uuid.UUID) error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Set(ctx, tombstoneKey(runID), "1", cancelTombstoneTTL).Err(); err != nil {
		return fmt.Errorf("publishing cancellation tombstone: %w", err)
	}
	return nil
}

// IsCancelled reports whether runID has a published cancellation tombstone.
// Exported for pkg/ingest's Worker, which checks it at stage boundaries
// without holding a Service reference of its own.
func IsCancelled(ctx context.Context, rdb *redis.Client, runID uuid.UUID) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	n, err := rdb.Exists(ctx, tombstoneKey(runID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking cancellation tombstone: %w", err)
	}
	return n > 0, nil
}
