package stages_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

func TestSummarizeRunPassesShortBodyThrough(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	body := "short body"
	msg := models.Message{ID: 1, BodyText: &body}

	s := stages.Summarize{}
	payload, err := s.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.SummaryDonePayload)
	assert.Equal(t, body, p.Summary)
}

func TestSummarizeRunTruncatesLongBody(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	body := strings.Repeat("a", 600)
	msg := models.Message{ID: 1, BodyText: &body}

	s := stages.Summarize{}
	payload, err := s.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.SummaryDonePayload)
	assert.Len(t, p.Summary, 500)
}

func TestSummarizeRunHandlesNilBody(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	msg := models.Message{ID: 1}

	s := stages.Summarize{}
	payload, err := s.Run(ctx, log, &msg)
	require.NoError(t, err)

	p := payload.(models.SummaryDonePayload)
	assert.Equal(t, "", p.Summary)
}
