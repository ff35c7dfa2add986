package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	zsetKey    = "pipeline:tasks:ready"
	dataPrefix = "pipeline:tasks:data:"
)

// RedisBroker is the production Broker implementation: a sorted set
// ("pipeline:tasks:ready") scored by ready-time backs the delay queue, and
// one string key per task ID holds its JSON payload. Dedup is a SETNX on
// the data key — Dispatch is a no-op while a task's data key still exists.
type RedisBroker struct {
	client *redis.Client
	clock  Clock
	log    *slog.Logger
}

// NewRedisBroker wraps an existing go-redis client. Callers construct the
// client themselves (addr/password/db), matching the pattern of
// constructing a collaborator client once and handing it to its owning
// package.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{
		client: client,
		clock:  nil,
		log:    slog.Default().With("component", "broker"),
	}
}

type taskPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Dispatch implements Broker.
func (b *RedisBroker) Dispatch(ctx context.Context, name string, args map[string]any, taskID string, delay time.Duration) error {
	payload, err := json.Marshal(taskPayload{Name: name, Args: args})
	if err != nil {
		return fmt.Errorf("broker: marshal task %s: %w", taskID, err)
	}

	dataKey := dataPrefix + taskID
	ok, err := b.client.SetNX(ctx, dataKey, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("broker: store task %s: %w", taskID, err)
	}
	if !ok {
		// Already pending — dedup per spec §4.4/§4.5.
		b.log.Debug("dispatch deduplicated", "task_id", taskID, "task", name)
		return nil
	}

	readyAt := b.clock.now().Add(delay)
	if err := b.client.ZAdd(ctx, zsetKey, redis.Z{
		Score:  float64(readyAt.UnixNano()),
		Member: taskID,
	}).Err(); err != nil {
		return fmt.Errorf("broker: schedule task %s: %w", taskID, err)
	}

	b.log.Debug("dispatched", "task_id", taskID, "task", name, "delay", delay)
	return nil
}

// Pop implements Broker. It is not strictly atomic (ZRANGEBYSCORE +
// ZREM race under concurrent workers), which is acceptable: a worker that
// loses the race to remove a member simply pops nothing this cycle and
// retries, and stage-level idempotence (the event log) makes a duplicate
// pop harmless even in the rare case both race legs observe the member.
func (b *RedisBroker) Pop(ctx context.Context) (*Task, error) {
	now := float64(b.clock.now().UnixNano())

	ids, err := b.client.ZRangeByScore(ctx, zsetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: scan ready tasks: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrEmpty
	}

	taskID := ids[0]
	removed, err := b.client.ZRem(ctx, zsetKey, taskID).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: claim task %s: %w", taskID, err)
	}
	if removed == 0 {
		return nil, ErrEmpty
	}

	dataKey := dataPrefix + taskID
	raw, err := b.client.GetDel(ctx, dataKey).Result()
	if err != nil {
		if err == redis.Nil {
			// Data already consumed by a racing claim that lost the
			// dedup check above; nothing to return this cycle.
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("broker: load task %s: %w", taskID, err)
	}

	var p taskPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("broker: decode task %s: %w", taskID, err)
	}

	return &Task{ID: taskID, Name: p.Name, Args: p.Args}, nil
}
