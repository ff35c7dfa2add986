package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/config"
	"github.com/shopdesk/pipeline/pkg/retry"
)

// WorkerPool manages a pool of queue workers sharing one broker connection
// and one handler registry.
type WorkerPool struct {
	podID    string
	broker   broker.Broker
	config   *config.QueueConfig
	policy   retry.Policy
	handlers map[string]Handler
	workers  []*Worker
	started  bool
	mu       sync.Mutex
}

// NewWorkerPool creates a new worker pool. handlers maps stage/task name to
// the Handler that executes it (see pkg/stages).
func NewWorkerPool(podID string, b broker.Broker, cfg *config.QueueConfig, policy retry.Policy, handlers map[string]Handler) *WorkerPool {
	return &WorkerPool{
		podID:    podID,
		broker:   b,
		config:   cfg,
		policy:   policy,
		handlers: handlers,
		workers:  make([]*Worker, 0, cfg.WorkerCount),
	}
}

// Start spawns worker goroutines. Safe to call multiple times; subsequent
// calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := NewWorker(workerID, p.podID, p.broker, p.config, p.policy, p.handlers)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	slog.Info("worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for each to finish its current
// task (graceful shutdown — workers never abandon a task mid-handler).
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")
	for _, worker := range p.workers {
		worker.Stop()
	}
	slog.Info("worker pool stopped gracefully")
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	return &PoolHealth{
		PodID:         p.podID,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		WorkerStats:   workerStats,
	}
}
