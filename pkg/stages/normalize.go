package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/normalize"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// Normalize builds a DocFields from the latest DOCQA_DONE event (or an
// empty one), pairs it with the message body and latest ASR transcript,
// and runs the field merger (C7). Grounded on celery_tasks.py's
// `_normalize_task`.
type Normalize struct{}

var _ stage.MessageRunner = Normalize{}

func (Normalize) DoneEvent() models.EventType { return models.EventNormalizeDone }

func (Normalize) Run(ctx context.Context, log *eventlog.Log, msg *models.Message) (any, error) {
	var doc models.DocFields
	if docEvent, err := log.Latest(ctx, msg.ID, models.EventDocQADone); err != nil {
		return nil, fmt.Errorf("normalize: load DOCQA_DONE for message %d: %w", msg.ID, err)
	} else if docEvent != nil {
		var p models.DocQADonePayload
		if err := json.Unmarshal(docEvent.Payload, &p); err != nil {
			return nil, fmt.Errorf("normalize: decode DOCQA_DONE for message %d: %w", msg.ID, err)
		}
		doc = p.Fields
	}

	body := ""
	if msg.BodyText != nil {
		body = *msg.BodyText
	}

	transcript := ""
	if asrEvent, err := log.Latest(ctx, msg.ID, models.EventASRDone); err != nil {
		return nil, fmt.Errorf("normalize: load ASR_DONE for message %d: %w", msg.ID, err)
	} else if asrEvent != nil {
		var asr models.ASRDonePayload
		if err := json.Unmarshal(asrEvent.Payload, &asr); err != nil {
			return nil, fmt.Errorf("normalize: decode ASR_DONE for message %d: %w", msg.ID, err)
		}
		transcript = asr.Text
	}

	normalized := normalize.MergeFields(doc, body, transcript)

	return models.NormalizeDonePayload{
		MessageID:  msg.ID,
		Normalized: normalized,
	}, nil
}
