package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// Classify runs zero-shot routing over the message's body text
// concatenated with the latest ASR transcript, if any. Grounded on
// celery_tasks.py's `_classify_task`.
type Classify struct {
	Model ml.Classifier
}

var _ stage.MessageRunner = Classify{}

func (Classify) DoneEvent() models.EventType { return models.EventClassifyDone }

func (c Classify) Run(ctx context.Context, log *eventlog.Log, msg *models.Message) (any, error) {
	text := ""
	if msg.BodyText != nil {
		text = *msg.BodyText
	}

	if asrEvent, err := log.Latest(ctx, msg.ID, models.EventASRDone); err != nil {
		return nil, fmt.Errorf("classify: load ASR_DONE for message %d: %w", msg.ID, err)
	} else if asrEvent != nil {
		var asr models.ASRDonePayload
		if err := json.Unmarshal(asrEvent.Payload, &asr); err != nil {
			return nil, fmt.Errorf("classify: decode ASR_DONE for message %d: %w", msg.ID, err)
		}
		text = strings.TrimSpace(text + "\n" + asr.Text)
	}

	result, err := c.Model.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classify: classify message %d: %w", msg.ID, err)
	}

	scores := make(map[models.RouteLabel]float64, len(result.Scores))
	for label, score := range result.Scores {
		scores[models.RouteLabel(label)] = score
	}

	return models.ClassifyDonePayload{
		MessageID: msg.ID,
		Label:     models.RouteLabel(result.Label),
		Scores:    scores,
	}, nil
}
