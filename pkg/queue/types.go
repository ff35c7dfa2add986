// Package queue runs a pool of workers pulling stage tasks off the broker
// (pkg/broker) and executing them through a registered Handler per stage
// name, with retry/backoff driven by pkg/retry.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/shopdesk/pipeline/pkg/broker"
)

// ErrNoTaskAvailable indicates the broker had nothing ready to pop.
var ErrNoTaskAvailable = errors.New("no task available")

// Handler executes one stage task. Implementations live in pkg/stages, one
// per stage name ("asr", "docqa", "vqa", "classify", "summarize",
// "docqa_select", "normalize"), in pkg/aggregator ("create_ticket") and in
// pkg/fanout ("ingested_fanout").
// Handlers return a *retry.StageError (or any error, treated as transient)
// to signal how the worker should respond to failure.
type Handler interface {
	Handle(ctx context.Context, task *broker.Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task *broker.Task) error

func (f HandlerFunc) Handle(ctx context.Context, task *broker.Task) error { return f(ctx, task) }

// PoolHealth reports the worker pool's current state.
type PoolHealth struct {
	PodID         string         `json:"pod_id"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports a single worker's current state.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"` // "idle" or "working"
	CurrentTask    string    `json:"current_task,omitempty"`
	TasksProcessed int       `json:"tasks_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
