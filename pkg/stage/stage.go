// Package stage implements the generic C2 skeleton every concrete stage in
// pkg/stages plugs into: load the input entity, check the event log for an
// existing completion event, reject unsupported MIMEs, fetch dependency
// payloads, invoke the stage's inference wrapper, and record the result.
// Grounded on original_source/worker/jobs/celery_tasks.py, whose seven
// `_*_task` functions all repeat this exact shape inline — this package
// factors it out once instead of repeating it seven times in pkg/stages.
package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/store"
)

// MessageRunner is a stage whose input is the message itself (Classify,
// Summarize, DocQA-Select, Normalize).
type MessageRunner interface {
	// DoneEvent is the event type that marks this stage complete.
	DoneEvent() models.EventType
	// Run executes the stage for a loaded message, returning the payload
	// to record. A nil payload with a nil error means "nothing to do yet,
	// don't record anything" (e.g. docqa_select with no DOCQA_DONE events
	// recorded, spec §4.3's "returns null and records no event").
	Run(ctx context.Context, log *eventlog.Log, msg *models.Message) (payload any, err error)
}

// AttachmentRunner is a stage whose input is one attachment (ASR, DocQA,
// VQA).
type AttachmentRunner interface {
	DoneEvent() models.EventType
	// Accept reports whether this stage handles the attachment's MIME
	// type at all. When false, RunForAttachment consults Terminal.
	Accept(mime string) bool
	// Terminal reports whether a MIME rejection should still be recorded
	// as a completion event with a reason (VQA's "unsupported_mime" /
	// "pdf_not_supported" terminal signal, spec §4.2 step 4) rather than
	// silently skipped (ASR/DocQA's behavior, ok == false).
	Terminal(att *models.Attachment) (payload any, ok bool)
	Run(ctx context.Context, log *eventlog.Log, att *models.Attachment) (payload any, err error)
}

// MessageLoader fetches a message by ID; satisfied by *store.MessageStore.
type MessageLoader interface {
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
}

// AttachmentLoader fetches an attachment by ID; satisfied by
// *store.MessageStore.
type AttachmentLoader interface {
	GetAttachment(ctx context.Context, id int64) (*models.Attachment, error)
}

// RunForMessage implements the C2 flow for a message-scoped stage: load
// the message, check idempotence, run, record. A missing message (spec
// §4.2 step 2 / §4.8 "input missing") is reported as (false, nil) — no
// error, nothing recorded.
func RunForMessage(ctx context.Context, log *eventlog.Log, messages MessageLoader, r MessageRunner, messageID int64) (ran bool, err error) {
	msg, err := messages.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stage: load message %d: %w", messageID, err)
	}

	done, err := log.Done(ctx, messageID, r.DoneEvent())
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	payload, err := r.Run(ctx, log, msg)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}

	if _, err := log.Record(ctx, nil, messageID, r.DoneEvent(), payload); err != nil {
		return false, err
	}
	return true, nil
}

// RunForAttachment implements the C2 flow for an attachment-scoped stage.
func RunForAttachment(ctx context.Context, log *eventlog.Log, attachments AttachmentLoader, r AttachmentRunner, attachmentID int64) (ran bool, err error) {
	att, err := attachments.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stage: load attachment %d: %w", attachmentID, err)
	}

	done, err := log.Done(ctx, att.MessageID, r.DoneEvent())
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	if !r.Accept(att.MIME) {
		if payload, ok := r.Terminal(att); ok {
			if _, err := log.Record(ctx, nil, att.MessageID, r.DoneEvent(), payload); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	payload, err := r.Run(ctx, log, att)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}

	if _, err := log.Record(ctx, nil, att.MessageID, r.DoneEvent(), payload); err != nil {
		return false, err
	}
	return true, nil
}
