package stages

import (
	"context"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
)

// summaryMaxChars is the truncate-to-500-characters contract spec §4.3
// names as the stage's "simplest form" — the one implemented here (see
// DESIGN.md's Open Question decision on the summarizer-model alternative).
const summaryMaxChars = 500

// Summarize truncates the message body to summaryMaxChars. Grounded on
// celery_tasks.py's `_summarize_task`.
type Summarize struct{}

var _ stage.MessageRunner = Summarize{}

func (Summarize) DoneEvent() models.EventType { return models.EventSummaryDone }

func (Summarize) Run(ctx context.Context, log *eventlog.Log, msg *models.Message) (any, error) {
	body := ""
	if msg.BodyText != nil {
		body = *msg.BodyText
	}
	if r := []rune(body); len(r) > summaryMaxChars {
		body = string(r[:summaryMaxChars])
	}

	return models.SummaryDonePayload{
		MessageID: msg.ID,
		Summary:   body,
	}, nil
}
