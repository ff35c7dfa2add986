package queue

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/config"
	"github.com/shopdesk/pipeline/pkg/retry"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls the broker for ready tasks
// and dispatches them to the registered Handler for the task's stage.
type Worker struct {
	id       string
	podID    string
	broker   broker.Broker
	config   *config.QueueConfig
	policy   retry.Policy
	handlers map[string]Handler
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.RWMutex
	status         WorkerStatus
	currentTask    string
	tasksProcessed int
	lastActivity   time.Time
}

// NewWorker creates a new queue worker. handlers maps stage/task name to
// its Handler; a task whose name has no registered handler is logged and
// dropped (it is never retried — there is nothing that will ever handle it).
func NewWorker(id, podID string, b broker.Broker, cfg *config.QueueConfig, policy retry.Policy, handlers map[string]Handler) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		broker:       b,
		config:       cfg,
		policy:       policy,
		handlers:     handlers,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish the task it
// is currently processing, if any. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         string(w.status),
		CurrentTask:    w.currentTask,
		TasksProcessed: w.tasksProcessed,
		LastActivity:   w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoTaskAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error polling broker", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess pops one task and runs it through its handler, applying
// the retry policy on failure.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	task, err := w.broker.Pop(ctx)
	if err != nil {
		if errors.Is(err, broker.ErrEmpty) {
			return ErrNoTaskAvailable
		}
		return err
	}

	log := slog.With("task_id", task.ID, "task", task.Name, "worker_id", w.id)

	handler, ok := w.handlers[task.Name]
	if !ok {
		log.Error("no handler registered for task")
		return nil
	}

	w.setStatus(WorkerStatusWorking, task.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	attempt := attemptFromArgs(task.Args)
	handleCtx := ctx
	if w.config.SessionTimeout > 0 {
		var cancel context.CancelFunc
		handleCtx, cancel = context.WithTimeout(ctx, w.config.SessionTimeout)
		defer cancel()
	}
	handleErr := handler.Handle(handleCtx, task)

	if handleErr == nil {
		log.Info("task handled")
		w.mu.Lock()
		w.tasksProcessed++
		w.mu.Unlock()
		return nil
	}

	kind := retry.Classify(handleErr)
	retry.RecordFailure(task.Name, kind)
	if shouldRetry, delay := w.policy.Decide(handleErr, attempt); shouldRetry {
		log.Warn("task failed, scheduling retry", "error", handleErr, "kind", kind, "attempt", attempt, "delay", delay)
		redispatchArgs := copyArgs(task.Args)
		redispatchArgs["_attempt"] = attempt + 1
		if dispatchErr := w.broker.Dispatch(ctx, task.Name, redispatchArgs, task.ID, delay); dispatchErr != nil {
			log.Error("failed to redispatch task after failure", "error", dispatchErr)
		}
		return nil
	}

	log.Error("task failed permanently", "error", handleErr, "kind", kind, "attempt", attempt)
	return nil
}

func attemptFromArgs(args map[string]any) int {
	v, ok := args["_attempt"]
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 1
	}
}

func copyArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	return out
}

// pollInterval returns the poll duration with jitter in [base-jitter, base+jitter].
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentTask = taskID
	w.lastActivity = time.Now()
}
