package stages

import (
	"context"
	"log/slog"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/queue"
	"github.com/shopdesk/pipeline/pkg/retry"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// Task names the orchestrator (C4) and fan-out planner (C5) dispatch by;
// the queue's handler registry keys match these exactly.
const (
	TaskASR         = "asr"
	TaskDocQA       = "docqa"
	TaskVQA         = "vqa"
	TaskClassify    = "classify"
	TaskSummarize   = "summarize"
	TaskDocQASelect = "docqa_select"
	TaskNormalize   = "normalize"
)

// messageHandler wires a MessageRunner into a queue.HandlerFunc: decode
// the task's message_id arg, run the C2 skeleton, classify any failure
// for the retry policy (spec §4.8).
func messageHandler(name string, log *eventlog.Log, messages stage.MessageLoader, r stage.MessageRunner) queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, task *broker.Task) error {
		messageID, err := stage.Int64Arg(task.Args, "message_id")
		if err != nil {
			return retry.Permanent(name, 0, retry.KindPermanent, err)
		}

		ran, err := stage.RunForMessage(ctx, log, messages, r, messageID)
		if err != nil {
			return retry.Transient(name, messageID, err)
		}
		if ran {
			slog.Info("stage completed", "stage", name, "message_id", messageID)
		} else {
			slog.Debug("stage skipped", "stage", name, "message_id", messageID)
		}
		return nil
	})
}

// attachmentHandler wires an AttachmentRunner into a queue.HandlerFunc:
// decode the task's attachment_id arg, run the C2 skeleton.
func attachmentHandler(name string, log *eventlog.Log, attachments stage.AttachmentLoader, r stage.AttachmentRunner) queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, task *broker.Task) error {
		attachmentID, err := stage.Int64Arg(task.Args, "attachment_id")
		if err != nil {
			return retry.Permanent(name, 0, retry.KindPermanent, err)
		}

		ran, err := stage.RunForAttachment(ctx, log, attachments, r, attachmentID)
		if err != nil {
			return retry.Transient(name, attachmentID, err)
		}
		if ran {
			slog.Info("stage completed", "stage", name, "attachment_id", attachmentID)
		} else {
			slog.Debug("stage skipped", "stage", name, "attachment_id", attachmentID)
		}
		return nil
	})
}

// Handlers builds the registered handler map cmd/worker passes to
// pkg/queue.NewWorkerPool, one entry per task name in the table above.
func Handlers(log *eventlog.Log, messages stage.MessageLoader, attachments stage.AttachmentLoader, asr ASR, docqa DocQA, vqa VQA, classify Classify) map[string]queue.Handler {
	return map[string]queue.Handler{
		TaskASR:         attachmentHandler(TaskASR, log, attachments, asr),
		TaskDocQA:       attachmentHandler(TaskDocQA, log, attachments, docqa),
		TaskVQA:         attachmentHandler(TaskVQA, log, attachments, vqa),
		TaskClassify:    messageHandler(TaskClassify, log, messages, classify),
		TaskSummarize:   messageHandler(TaskSummarize, log, messages, Summarize{}),
		TaskDocQASelect: messageHandler(TaskDocQASelect, log, messages, DocQASelect{}),
		TaskNormalize:   messageHandler(TaskNormalize, log, messages, Normalize{}),
	}
}
