package config

import "fmt"

// Validator runs structural validation over a loaded Config.
type Validator struct {
	cfg *Config
}

// NewValidator creates a Validator bound to cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation check, returning the first failure.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return err
	}
	if err := v.validateRetry(); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("%w: queue configuration is nil", ErrValidationFailed)
	}
	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("%w: worker_count must be between 1 and 50, got %d", ErrInvalidValue, q.WorkerCount)
	}
	if q.MaxConcurrentSessions < 1 {
		return fmt.Errorf("%w: max_concurrent_sessions must be at least 1", ErrInvalidValue)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidValue)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("%w: poll_interval_jitter must be non-negative", ErrInvalidValue)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("%w: poll_interval_jitter must be less than poll_interval", ErrInvalidValue)
	}
	if q.SessionTimeout <= 0 {
		return fmt.Errorf("%w: session_timeout must be positive", ErrInvalidValue)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("%w: graceful_shutdown_timeout must be positive", ErrInvalidValue)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("%w: orphan_detection_interval must be positive", ErrInvalidValue)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("%w: orphan_threshold must be positive", ErrInvalidValue)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidValue)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("%w: heartbeat_interval must be less than orphan_threshold", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateRetry() error {
	r := v.cfg.Defaults.Retry
	if r.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries must be non-negative", ErrInvalidValue)
	}
	if r.BaseDelay < 0 {
		return fmt.Errorf("%w: retry.base_delay_seconds must be non-negative", ErrInvalidValue)
	}
	if r.Backoff != BackoffFixed && r.Backoff != BackoffExponential {
		return fmt.Errorf("%w: retry.backoff must be \"fixed\" or \"exponential\", got %q", ErrInvalidValue, r.Backoff)
	}
	return nil
}
