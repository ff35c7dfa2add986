// Package scenarios_test exercises the six named end-to-end scenarios
// spec §8 lists as Testable Properties (S1-S6), driving the real
// stage/fanout/aggregator components — not the queue/broker transport —
// over testutil's in-memory fakes, the same substrate pkg/aggregator and
// pkg/stages unit tests use.
package scenarios_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/aggregator"
	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/helpdesk"
	"github.com/shopdesk/pipeline/pkg/ingest"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/storage"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

// TestS1RefundWithReceiptAndVoicemail covers spec §8 S1: a body with no
// extractable fields, a low-confidence DocQA extraction the confidence
// floor rejects, and an ASR transcript the regex fallback reads instead.
func TestS1RefundWithReceiptAndVoicemail(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()

	body := "Hi, my package never arrived. See attached receipt."
	messages.PutMessage(models.Message{ID: 1, Source: "email", BodyText: &body})

	docOrderID := "A10023"
	_, err := events.Append(ctx, nil, ptr64(1), models.EventDocQADone, models.DocQADonePayload{
		AttachmentID: 1,
		MessageID:    1,
		Fields: models.DocFields{
			OrderID:    &docOrderID,
			Confidence: map[string]float64{"order_id": 0.5},
		},
	})
	require.NoError(t, err)

	transcript := "Hello, I need a refund for order #WEB-999, it was 59.99 dollars on 10/05/2025."
	_, err = events.Append(ctx, nil, ptr64(1), models.EventASRDone, models.ASRDonePayload{
		AttachmentID: 2,
		MessageID:    1,
		Text:         transcript,
		Confidence:   0.9,
	})
	require.NoError(t, err)

	ran, err := stage.RunForMessage(ctx, log, messages, stages.DocQASelect{}, 1)
	require.NoError(t, err)
	require.True(t, ran)

	ran, err = stage.RunForMessage(ctx, log, messages, stages.Normalize{}, 1)
	require.NoError(t, err)
	require.True(t, ran)

	normEvent, err := log.Latest(ctx, 1, models.EventNormalizeDone)
	require.NoError(t, err)
	require.NotNil(t, normEvent)

	var payload models.NormalizeDonePayload
	require.NoError(t, decodePayload(normEvent, &payload))
	n := payload.Normalized

	require.NotNil(t, n.OrderID)
	assert.Equal(t, "WEB-999", *n.OrderID, "low-confidence DocQA order_id is overridden by the regex fallback")
	require.NotNil(t, n.Amount)
	assert.Equal(t, "59.99", *n.Amount)
	require.NotNil(t, n.Currency)
	assert.Equal(t, "USD", *n.Currency, "currency comes from the ±12-char word-window fallback around \"59.99 dollars\"")
	require.NotNil(t, n.OrderDate)
	assert.Equal(t, "2025-05-10", *n.OrderDate)

	for _, field := range []string{"order_id", "amount", "currency", "order_date"} {
		assert.Equal(t, models.SourceRegex, n.Source[field], "field %s must be sourced from regex", field)
	}
}

// TestS2HighConfidenceDocQAWins covers spec §8 S2: DocQA's own extraction
// clears the confidence floor, so it wins over a regex match present in
// the body.
func TestS2HighConfidenceDocQAWins(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()

	body := "order #BODY-456"
	messages.PutMessage(models.Message{ID: 1, Source: "email", BodyText: &body})

	orderID := "DOCQA-123"
	_, err := events.Append(ctx, nil, ptr64(1), models.EventDocQADone, models.DocQADonePayload{
		AttachmentID: 1,
		MessageID:    1,
		Fields: models.DocFields{
			OrderID:    &orderID,
			Confidence: map[string]float64{"order_id": 0.9},
		},
	})
	require.NoError(t, err)

	_, err = stage.RunForMessage(ctx, log, messages, stages.DocQASelect{}, 1)
	require.NoError(t, err)
	_, err = stage.RunForMessage(ctx, log, messages, stages.Normalize{}, 1)
	require.NoError(t, err)

	normEvent, err := log.Latest(ctx, 1, models.EventNormalizeDone)
	require.NoError(t, err)
	var payload models.NormalizeDonePayload
	require.NoError(t, decodePayload(normEvent, &payload))

	require.NotNil(t, payload.Normalized.OrderID)
	assert.Equal(t, "DOCQA-123", *payload.Normalized.OrderID)
	assert.Equal(t, models.SourceDocQA, payload.Normalized.Source["order_id"])
}

// TestS3DuplicateIngestUpsertsOneMessage covers spec §8 S3: two ingests
// with the same (source, external_id) produce exactly one message row.
func TestS3DuplicateIngestUpsertsOneMessage(t *testing.T) {
	ctx := context.Background()
	messages := testutil.NewFakeMessageStore()
	store := storage.NewSandbox()
	runner := &countingRunner{}
	svc := ingest.New(messages, store, runner)

	externalID := "X"
	id1, err := svc.Ingest(ctx, ingest.MessageInput{Source: "gmail", ExternalID: &externalID})
	require.NoError(t, err)
	id2, err := svc.Ingest(ctx, ingest.MessageInput{Source: "gmail", ExternalID: &externalID})
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "second ingest with the same (source, external_id) must upsert the same row")

	msg, err := messages.GetMessage(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "gmail", msg.Source)
	require.NotNil(t, msg.ExternalID)
	assert.Equal(t, externalID, *msg.ExternalID)
	assert.Len(t, runner.ran, 2, "the orchestrator is re-dispatched, harmlessly, on each ingest call")
}

// TestS4IdempotentRerunProducesOneTicket covers spec §8 S4: running the
// stage -> fanout -> aggregator path twice for the same message_id
// produces exactly one of each completion event and exactly one ticket.
func TestS4IdempotentRerunProducesOneTicket(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()
	tickets := testutil.NewFakeTicketStore()

	body := "order #Z99001, please refund"
	messages.PutMessage(models.Message{ID: 1, Source: "email", BodyText: &body})

	model := ml.Sandbox{}
	classify := stages.Classify{Model: model}
	summarize := stages.Summarize{}
	docqaSelect := stages.DocQASelect{}
	normalize := stages.Normalize{}
	agg := aggregator.New(log, tickets, nil)

	runAll := func() {
		_, err := stage.RunForMessage(ctx, log, messages, classify, 1)
		require.NoError(t, err)
		_, err = stage.RunForMessage(ctx, log, messages, summarize, 1)
		require.NoError(t, err)
		_, err = stage.RunForMessage(ctx, log, messages, docqaSelect, 1)
		require.NoError(t, err)
		_, err = stage.RunForMessage(ctx, log, messages, normalize, 1)
		require.NoError(t, err)
		require.NoError(t, agg.Run(ctx, 1))
	}

	runAll()
	runAll()

	for _, typ := range []models.EventType{
		models.EventClassifyDone, models.EventSummaryDone,
		models.EventNormalizeDone, models.EventTicketCreated,
	} {
		all, err := events.All(ctx, 1)
		require.NoError(t, err)
		count := 0
		for _, e := range all {
			if e.Type == typ {
				count++
			}
		}
		assert.Equal(t, 1, count, "event %s must be recorded exactly once across two runs", typ)
	}

	assert.Len(t, tickets.Dump(), 1, "exactly one ticket must exist after two runs")
}

// TestS5VQAOnPDFIsTerminalWithoutInference covers spec §8 S5: a PDF
// attachment gets a terminal VQA_DONE event with a null damage verdict
// and no inference call.
func TestS5VQAOnPDFIsTerminalWithoutInference(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	attachments := testutil.NewFakeMessageStore()

	attachments.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "application/pdf", StorageKey: "irrelevant"})

	vqa := stages.VQA{Storage: storage.NewSandbox(), Model: panicVQA{}}

	ran, err := stage.RunForAttachment(ctx, log, attachments, vqa, 1)
	require.NoError(t, err)
	require.True(t, ran, "a MIME rejection must still record a terminal VQA_DONE event")

	event, err := log.Latest(ctx, 1, models.EventVQADone)
	require.NoError(t, err)
	require.NotNil(t, event)

	var payload models.VQADonePayload
	require.NoError(t, decodePayload(event, &payload))
	assert.Nil(t, payload.IsDamaged)
	require.NotNil(t, payload.Reason)
	assert.Equal(t, models.VQAReasonPDFNotSupported, *payload.Reason)
}

// TestS6DegradedTicketHasNullRouteAndSummary covers spec §8 S6: with no
// DocQA, no ASR, and a body carrying no extractable signal, the ticket is
// still created with a null route, null summary, and empty normalized
// fields.
func TestS6DegradedTicketHasNullRouteAndSummary(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()
	tickets := testutil.NewFakeTicketStore()

	body := "help me"
	messages.PutMessage(models.Message{ID: 1, Source: "upload", BodyText: &body})

	_, err := stage.RunForMessage(ctx, log, messages, stages.Normalize{}, 1)
	require.NoError(t, err)

	agg := aggregator.New(log, tickets, helpdesk.NewSandbox())
	require.NoError(t, agg.Run(ctx, 1))

	ticket, err := tickets.GetByMessage(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, ticket.Route, "no CLASSIFY_DONE event was ever recorded")
	assert.Nil(t, ticket.Summary, "no SUMMARY_DONE event was ever recorded")

	event, err := log.Latest(ctx, 1, models.EventTicketCreated)
	require.NoError(t, err)
	require.NotNil(t, event)
	var payload models.TicketCreatedPayload
	require.NoError(t, decodePayload(event, &payload))
	assert.Empty(t, payload.Normalized.Source, "\"help me\" has no regex-extractable field")
}

func decodePayload(e *models.Event, v any) error {
	return json.Unmarshal(e.Payload, v)
}

func ptr64(v int64) *int64 { return &v }

type countingRunner struct{ ran []int64 }

func (r *countingRunner) Run(_ context.Context, messageID int64) error {
	r.ran = append(r.ran, messageID)
	return nil
}

// panicVQA fails the test if Run ever reaches the inference call — S5
// requires the PDF rejection to short-circuit before any model is invoked.
type panicVQA struct{}

func (panicVQA) IsDamaged(context.Context, []byte) (bool, error) {
	panic("VQA model invoked for a MIME type that should have been rejected as terminal")
}
