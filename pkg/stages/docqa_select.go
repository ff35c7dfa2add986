package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// DocQASelect picks the best DOCQA_DONE event recorded so far for a
// message, scored by (has_order_id, confidence.order_id, confidence.amount)
// with ties broken by recency. Grounded on celery_tasks.py's
// `_choose_best_docqa`.
type DocQASelect struct{}

var _ stage.MessageRunner = DocQASelect{}

func (DocQASelect) DoneEvent() models.EventType { return models.EventDocQASelected }

func (DocQASelect) Run(ctx context.Context, log *eventlog.Log, msg *models.Message) (any, error) {
	events, err := log.All(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("docqa_select: load events for message %d: %w", msg.ID, err)
	}

	var best *models.DocQADonePayload
	for i := range events {
		e := events[i]
		if e.Type != models.EventDocQADone {
			continue
		}
		var p models.DocQADonePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("docqa_select: decode DOCQA_DONE event %d: %w", e.ID, err)
		}
		// events are returned oldest-first, so a later equally-scored
		// candidate replaces the current best — ties break on most recent.
		if best == nil || !lessDocQA(score(p), score(*best)) {
			p := p
			best = &p
		}
	}

	if best == nil {
		return nil, nil
	}

	return models.DocQASelectedPayload{
		MessageID:    msg.ID,
		AttachmentID: best.AttachmentID,
		Fields:       best.Fields,
	}, nil
}

type docQAScore struct {
	hasOrderID   int
	orderIDConf  float64
	amountConf   float64
}

func score(p models.DocQADonePayload) docQAScore {
	has := 0
	if p.Fields.OrderID != nil && *p.Fields.OrderID != "" {
		has = 1
	}
	return docQAScore{
		hasOrderID:  has,
		orderIDConf: p.Fields.Confidence["order_id"],
		amountConf:  p.Fields.Confidence["amount"],
	}
}

// lessDocQA reports whether a scores strictly lower than b, lexicographic
// on (has_order_id, confidence.order_id, confidence.amount).
func lessDocQA(a, b docQAScore) bool {
	if a.hasOrderID != b.hasOrderID {
		return a.hasOrderID < b.hasOrderID
	}
	if a.orderIDConf != b.orderIDConf {
		return a.orderIDConf < b.orderIDConf
	}
	return a.amountConf < b.amountConf
}
