// Package queue implements the durable asset task queue the worker tier
// consumes (spec.md §5: "Tasks are keyed by asset_id; the queue guarantees
// at-least-once delivery"). Grounded on the Redis usage pattern in
// pkg/alert's dedup cache, generalized from a key/value cache to a
// consumer-group stream.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// AssetStream is the Redis Stream carrying asset sanitization tasks.
	AssetStream = "escalatesafe:assets"

	// consumerGroup is shared by every worker process; each claims distinct
	// entries via XREADGROUP.
	consumerGroup = "asset-workers"

	// claimIdleTimeout is how long an entry may sit unacknowledged before
	// another consumer may steal it (crashed-worker recovery).
	claimIdleTimeout = 2 * time.Minute
)

// AssetTask is one unit of work for the worker tier. OriginalRef points at
// the as-fetched attachment bytes in the blob store (written by the ingest
// step before enqueueing), so the worker never re-downloads from upstream.
type AssetTask struct {
	AssetID     uuid.UUID `json:"asset_id"`
	RunID       uuid.UUID `json:"run_id"`
	OriginalRef string    `json:"original_ref"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	Mime        string    `json:"mime"`
}

// Delivery wraps a dequeued AssetTask with the stream entry ID needed to
// acknowledge it.
type Delivery struct {
	Task  AssetTask
	msgID string
}

// Queue is a durable, at-least-once task queue backed by a Redis Stream and
// consumer group (spec.md §5).
type Queue struct {
	rdb      *redis.Client
	consumer string
}

// New builds a Queue and ensures the consumer group exists. consumer
// identifies this worker process within the shared group.
func New(ctx context.Context, rdb *redis.Client, consumer string) (*Queue, error) {
	err := rdb.XGroupCreateMkStream(ctx, AssetStream, consumerGroup, "$").Err()
	if err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}
	return &Queue{rdb: rdb, consumer: consumer}, nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Enqueue publishes an asset task. Called by the request tier right after a
// RunAsset row is created in pending.
func (q *Queue) Enqueue(ctx context.Context, task AssetTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshaling asset task: %w", err)
	}
	err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: AssetStream,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing asset task: %w", err)
	}
	return nil
}

// Dequeue blocks up to block for the next undelivered task addressed to this
// consumer group.
func (q *Queue) Dequeue(ctx context.Context, block time.Duration) (*Delivery, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: q.consumer,
		Streams:  []string{AssetStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading asset task: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	raw, _ := msg.Values["payload"].(string)

	var task AssetTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// Ack the poison message; at-least-once delivery does not mean we
		// redeliver forever on a payload that will never parse.
		q.rdb.XAck(ctx, AssetStream, consumerGroup, msg.ID)
		return nil, fmt.Errorf("unmarshaling asset task %s: %w", msg.ID, err)
	}

	return &Delivery{Task: task, msgID: msg.ID}, nil
}

// ReclaimStale returns tasks that were delivered to a now-dead consumer and
// never acknowledged within claimIdleTimeout, handing them to this
// consumer — the at-least-once redelivery spec.md §5 requires.
func (q *Queue) ReclaimStale(ctx context.Context) ([]Delivery, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   AssetStream,
		Group:    consumerGroup,
		Consumer: q.consumer,
		MinIdle:  claimIdleTimeout,
		Start:    "0-0",
		Count:    50,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reclaiming stale asset tasks: %w", err)
	}

	out := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		raw, _ := msg.Values["payload"].(string)
		var task AssetTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			q.rdb.XAck(ctx, AssetStream, consumerGroup, msg.ID)
			continue
		}
		out = append(out, Delivery{Task: task, msgID: msg.ID})
	}
	return out, nil
}

// Ack acknowledges successful (or terminally failed) processing of a
// delivery, removing it from the pending entries list.
func (q *Queue) Ack(ctx context.Context, d Delivery) error {
	if err := q.rdb.XAck(ctx, AssetStream, consumerGroup, d.msgID).Err(); err != nil {
		return fmt.Errorf("acking asset task %s: %w", d.msgID, err)
	}
	return nil
}
