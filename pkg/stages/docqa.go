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

// DocQA extracts order fields from a document/image attachment. Grounded
// on celery_tasks.py's `_docqa_task`.
type DocQA struct {
	Storage storage.Store
	Model   ml.DocQA
}

var _ stage.AttachmentRunner = DocQA{}

func (DocQA) DoneEvent() models.EventType             { return models.EventDocQADone }
func (DocQA) Accept(mime string) bool                 { return stage.IsDocOrImage(mime) }
func (DocQA) Terminal(*models.Attachment) (any, bool) { return nil, false }

func (d DocQA) Run(ctx context.Context, log *eventlog.Log, att *models.Attachment) (any, error) {
	obj, err := d.Storage.Get(ctx, att.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("docqa: fetch attachment %d: %w", att.ID, err)
	}
	mime := att.MIME
	if mime == "" {
		mime = obj.MIME
	}

	fields, err := d.Model.ExtractFields(ctx, obj.Data, mime)
	if err != nil {
		return nil, fmt.Errorf("docqa: extract fields for attachment %d: %w", att.ID, err)
	}

	return models.DocQADonePayload{
		AttachmentID: att.ID,
		MessageID:    att.MessageID,
		Fields:       toModelDocFields(fields),
	}, nil
}

func toModelDocFields(f ml.DocFields) models.DocFields {
	return models.DocFields{
		OrderID:    f.OrderID,
		Amount:     f.Amount,
		Currency:   f.Currency,
		OrderDate:  f.OrderDate,
		SKU:        f.SKU,
		Confidence: f.Confidence,
	}
}
