package stages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

func TestNormalizeRunWithNoPriorEventsUsesBodyOnly(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	body := "order #A10023 placed on 01/02/2024"
	msg := models.Message{ID: 1, BodyText: &body}

	n := stages.Normalize{}
	payload, err := n.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.NormalizeDonePayload)
	assert.Equal(t, int64(1), p.MessageID)
	require.NotNil(t, p.Normalized.OrderID)
	assert.Equal(t, "A10023", *p.Normalized.OrderID)
	assert.Equal(t, models.SourceRegex, p.Normalized.Source["order_id"])
}

func TestNormalizeRunPrefersDocQAWhenConfident(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	msgID := int64(1)

	docOrderID := "B99999"
	_, err := events.Append(ctx, nil, &msgID, models.EventDocQADone, models.DocQADonePayload{
		AttachmentID: 1, MessageID: 1,
		Fields: models.DocFields{
			OrderID:    &docOrderID,
			Confidence: map[string]float64{"order_id": 0.95},
		},
	})
	require.NoError(t, err)

	body := "order #A10023"
	msg := models.Message{ID: 1, BodyText: &body}

	n := stages.Normalize{}
	payload, err := n.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.NormalizeDonePayload)
	require.NotNil(t, p.Normalized.OrderID)
	assert.Equal(t, docOrderID, *p.Normalized.OrderID)
	assert.Equal(t, models.SourceDocQA, p.Normalized.Source["order_id"])
}

func TestNormalizeRunIncludesASRTranscriptText(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	msgID := int64(1)
	_, err := events.Append(ctx, nil, &msgID, models.EventASRDone, models.ASRDonePayload{
		AttachmentID: 1, MessageID: 1, Text: "item: SKU-12345", Confidence: 0.9,
	})
	require.NoError(t, err)

	msg := models.Message{ID: 1}
	n := stages.Normalize{}
	payload, err := n.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.NormalizeDonePayload)
	require.NotNil(t, p.Normalized.SKU)
	assert.Equal(t, "SKU-12345", *p.Normalized.SKU)
}
