// Package stages holds the seven concrete stage configurations (C3) that
// plug into pkg/stage's generic skeleton: ASR, DocQA, VQA, Classify,
// Summarize, DocQA-Select, Normalize. Each is grounded on the matching
// `_*_task` function in original_source/worker/jobs/celery_tasks.py.
package stages

import (
	"context"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
	"github.com/shopdesk/pipeline/pkg/storage"
)

// ASR transcribes audio attachments. Grounded on celery_tasks.py's
// `_asr_task`.
type ASR struct {
	Storage storage.Store
	Model   ml.ASR
}

var _ stage.AttachmentRunner = ASR{}

func (ASR) DoneEvent() models.EventType                    { return models.EventASRDone }
func (ASR) Accept(mime string) bool                        { return stage.IsAudio(mime) }
func (ASR) Terminal(*models.Attachment) (any, bool)        { return nil, false }

func (a ASR) Run(ctx context.Context, log *eventlog.Log, att *models.Attachment) (any, error) {
	obj, err := a.Storage.Get(ctx, att.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("asr: fetch attachment %d: %w", att.ID, err)
	}
	mime := att.MIME
	if mime == "" {
		mime = obj.MIME
	}

	transc, err := a.Model.Transcribe(ctx, obj.Data, mime)
	if err != nil {
		return nil, fmt.Errorf("asr: transcribe attachment %d: %w", att.ID, err)
	}

	return models.ASRDonePayload{
		AttachmentID: att.ID,
		MessageID:    att.MessageID,
		Text:         transc.Text,
		Confidence:   transc.Confidence,
	}, nil
}
