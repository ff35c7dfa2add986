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

// VQA detects visible damage in an image attachment. PDFs and any other
// unsupported MIME still get a terminal VQA_DONE event so downstream
// aggregation sees a definite signal (spec §4.2 step 4, §8 S5). Grounded
// on celery_tasks.py's `_is_damaged_task`.
type VQA struct {
	Storage storage.Store
	Model   ml.VQA
}

var _ stage.AttachmentRunner = VQA{}

func (VQA) DoneEvent() models.EventType { return models.EventVQADone }
func (VQA) Accept(mime string) bool     { return stage.IsImage(mime) }

func (VQA) Terminal(att *models.Attachment) (any, bool) {
	reason := models.VQAReasonUnsupportedMIME
	if stage.IsPDF(att.MIME) {
		reason = models.VQAReasonPDFNotSupported
	}
	return models.VQADonePayload{
		AttachmentID: att.ID,
		MessageID:    att.MessageID,
		IsDamaged:    nil,
		Reason:       &reason,
		MIME:         att.MIME,
	}, true
}

func (v VQA) Run(ctx context.Context, log *eventlog.Log, att *models.Attachment) (any, error) {
	obj, err := v.Storage.Get(ctx, att.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("vqa: fetch attachment %d: %w", att.ID, err)
	}

	damaged, err := v.Model.IsDamaged(ctx, obj.Data)
	if err != nil {
		return nil, fmt.Errorf("vqa: inspect attachment %d: %w", att.ID, err)
	}

	return models.VQADonePayload{
		AttachmentID: att.ID,
		MessageID:    att.MessageID,
		IsDamaged:    &damaged,
		MIME:         att.MIME,
	}, nil
}
