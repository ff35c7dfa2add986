package config

import "time"

// Defaults holds the orchestrator's stage dispatch delays and the stage
// retry policy, the two pieces of tuning the pipeline exposes beyond queue
// sizing and collaborator connection settings.
type Defaults struct {
	Orchestrator OrchestratorDelays
	Retry        RetryPolicy
}

// OrchestratorDelays mirrors spec §4.4's task table: relative dispatch
// delay for each of the five delayed orchestrator tasks (ingested-fanout
// is dispatched with no delay and has no field here).
type OrchestratorDelays struct {
	Classify    time.Duration
	Summarize   time.Duration
	DocQASelect time.Duration
	Normalize   time.Duration
	Ticket      time.Duration
}

// RetryPolicy bounds the retry behavior for transient stage failures
// (spec §4.8): fixed number of attempts, base delay, chosen backoff shape.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Backoff    BackoffKind
}

// BackoffKind selects between a fixed and an exponential retry delay.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// DefaultOrchestratorDelays returns the delays named in spec §4.4.
func DefaultOrchestratorDelays() OrchestratorDelays {
	return OrchestratorDelays{
		Classify:    5 * time.Second,
		Summarize:   5 * time.Second,
		DocQASelect: 15 * time.Second,
		Normalize:   20 * time.Second,
		Ticket:      25 * time.Second,
	}
}

// DefaultRetryPolicy returns the bounded-retry policy named in spec §4.8:
// max 3 retries, base delay 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  10 * time.Second,
		Backoff:    BackoffFixed,
	}
}

// DefaultDefaults returns the built-in system-wide defaults.
func DefaultDefaults() *Defaults {
	return &Defaults{
		Orchestrator: DefaultOrchestratorDelays(),
		Retry:        DefaultRetryPolicy(),
	}
}
