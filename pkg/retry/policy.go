// Package retry implements the spec §4.8 failure taxonomy and backoff
// policy shared by every stage handler in pkg/queue, plus the
// pipeline_failures_total metrics sink.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopdesk/pipeline/pkg/config"
)

// Kind classifies a stage failure for retry purposes.
type Kind string

const (
	// KindTransient covers collaborator timeouts, connection resets, and
	// other errors expected to clear on their own. Retried up to MaxRetries.
	KindTransient Kind = "transient"
	// KindNotFound covers a referenced message/attachment row that no
	// longer exists. Never retried.
	KindNotFound Kind = "not_found"
	// KindUnsupported covers inputs a stage cannot process by design (an
	// unsupported attachment MIME type for VQA, for instance). Never
	// retried — the stage still emits its *_done event with a reason.
	KindUnsupported Kind = "unsupported"
	// KindConflict covers a race already resolved by another worker. Never
	// retried. No handler in this repository returns it.
	KindConflict Kind = "conflict"
	// KindPermanent covers malformed input (corrupt bytes, unparseable
	// payload) or a collaborator rejecting the request outright (4xx
	// other than 404/429). Spec §4.8 treats this as transient until the
	// retry budget is exhausted — it is retried like KindTransient, not
	// short-circuited at attempt 1.
	KindPermanent Kind = "permanent"
)

// StageError is the error type stage handlers should return so the worker
// pool can classify failures without string-matching.
type StageError struct {
	Stage     string
	MessageID int64
	Kind      Kind
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (message %d): %s: %v", e.Stage, e.MessageID, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable StageError.
func Transient(stage string, messageID int64, err error) error {
	return &StageError{Stage: stage, MessageID: messageID, Kind: KindTransient, Err: err}
}

// Permanent wraps err as a StageError with the given kind. Whether it is
// retried depends on the kind: KindPermanent itself is retried (see
// Retryable).
func Permanent(stage string, messageID int64, kind Kind, err error) error {
	return &StageError{Stage: stage, MessageID: messageID, Kind: kind, Err: err}
}

// Classify extracts the Kind from err, defaulting to KindTransient for any
// error that isn't a *StageError — an un-annotated error is assumed
// recoverable so stage authors aren't forced to wrap every error path.
func Classify(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// Retryable reports whether a failure of this kind should be retried at
// all. Transient and Permanent both retry up to MaxRetries (spec §4.8:
// permanent content errors are "treated as transient until retry budget
// is exhausted"); NotFound, Unsupported, and Conflict never retry.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindPermanent
}

// Policy decides whether and when to retry a failed task attempt.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Backoff    config.BackoffKind
}

// FromConfig builds a Policy from the loaded RetryPolicy defaults.
func FromConfig(p config.RetryPolicy) Policy {
	return Policy{MaxRetries: p.MaxRetries, BaseDelay: p.BaseDelay, Backoff: p.Backoff}
}

// Decide reports whether attempt (1-indexed, the attempt that just failed)
// should be retried, and if so after what delay.
func (p Policy) Decide(err error, attempt int) (retry bool, delay time.Duration) {
	if !Classify(err).Retryable() {
		return false, 0
	}
	if attempt > p.MaxRetries {
		return false, 0
	}
	if p.Backoff == config.BackoffExponential {
		return true, p.BaseDelay * time.Duration(1<<uint(attempt-1))
	}
	return true, p.BaseDelay
}
