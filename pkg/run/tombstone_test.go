package run

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestTombstoneKeyIsStableAndUnique(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if tombstoneKey(a) != tombstoneKey(a) {
		t.Error("tombstoneKey should be deterministic for the same run ID")
	}
	if tombstoneKey(a) == tombstoneKey(b) {
		t.Error("tombstoneKey should differ between distinct run IDs")
	}
}

func TestTombstoneNoopsWithoutRedis(t *testing.T) {
	ctx := context.Background()
	runID := uuid.New()

	if err := publishTombstone(ctx, nil, runID); err != nil {
		t.Fatalf("publishTombstone with nil client: %v", err)
	}
	cancelled, err := IsCancelled(ctx, nil, runID)
	if err != nil {
		t.Fatalf("IsCancelled with nil client: %v", err)
	}
	if cancelled {
		t.Error("IsCancelled should report false when no Redis client is configured")
	}
}
