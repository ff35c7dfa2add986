package config

import "time"

// QueueConfig controls how the worker pool pulls tasks from the broker and
// supervises in-flight stage executions.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per process, each
	// pulling tasks from the broker and running one to completion before
	// accepting another.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentSessions is not read by the worker pool; in-flight
	// tasks are bounded only by WorkerCount, one task per worker.
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions"`

	// PollInterval is the base interval between broker polls when idle.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// SessionTimeout bounds a single stage task's execution. A zero value
	// leaves it unbounded.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// GracefulShutdownTimeout is not read by the worker pool: Stop waits
	// for every worker's current task with no time bound.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is not read by the worker pool; no orphan
	// scan runs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is not read by the worker pool; tasks are never
	// requeued as orphaned.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// HeartbeatInterval is not read by the worker pool; workers record no
	// heartbeat.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentSessions:   5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		SessionTimeout:          15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
	}
}
