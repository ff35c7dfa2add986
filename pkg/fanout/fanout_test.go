package fanout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/fanout"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

func TestRunDispatchesOnePerMIMEEligibleAttachment(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	store := testutil.NewFakeMessageStore()
	store.PutMessage(models.Message{ID: 1})
	store.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "audio/mpeg"})
	store.PutAttachment(models.Attachment{ID: 2, MessageID: 1, MIME: "application/pdf"})
	store.PutAttachment(models.Attachment{ID: 3, MessageID: 1, MIME: "image/jpeg"})
	store.PutAttachment(models.Attachment{ID: 4, MessageID: 1, MIME: "text/plain"})
	b := testutil.NewFakeBroker()

	p := fanout.New(log, store, b)
	require.NoError(t, p.Run(ctx, 1))

	dispatched := b.Dispatched()
	byTask := map[string]int{}
	for _, task := range dispatched {
		byTask[task.Name]++
	}
	assert.Equal(t, 1, byTask[stages.TaskASR], "only the audio attachment gets ASR")
	assert.Equal(t, 2, byTask[stages.TaskDocQA], "the pdf and image attachments get DocQA")
	assert.Equal(t, 1, byTask[stages.TaskVQA], "only the image attachment gets VQA (fanout.IncludeVQA)")
	assert.Len(t, dispatched, 4, "the unsupported text/plain attachment gets no task")

	done, err := log.Done(ctx, 1, models.EventIngestedFanout)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunImageAttachmentGetsBothDocQAAndVQA(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	store := testutil.NewFakeMessageStore()
	store.PutMessage(models.Message{ID: 1})
	store.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "image/png"})
	b := testutil.NewFakeBroker()

	p := fanout.New(log, store, b)
	require.NoError(t, p.Run(ctx, 1))

	dispatched := b.Dispatched()
	require.Len(t, dispatched, 2)
	names := []string{dispatched[0].Name, dispatched[1].Name}
	assert.Contains(t, names, stages.TaskDocQA)
	assert.Contains(t, names, stages.TaskVQA)
}

func TestRunIsIdempotentWhenAlreadyFannedOut(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	store := testutil.NewFakeMessageStore()
	store.PutMessage(models.Message{ID: 1})
	store.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "audio/mpeg"})
	b := testutil.NewFakeBroker()

	p := fanout.New(log, store, b)
	require.NoError(t, p.Run(ctx, 1))
	require.NoError(t, p.Run(ctx, 1))

	assert.Len(t, b.Dispatched(), 1, "a second fanout run must not re-dispatch")
}

func TestRunDispatchTaskIDsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	store := testutil.NewFakeMessageStore()
	store.PutMessage(models.Message{ID: 7})
	store.PutAttachment(models.Attachment{ID: 42, MessageID: 7, MIME: "audio/mpeg"})
	b := testutil.NewFakeBroker()

	p := fanout.New(log, store, b)
	require.NoError(t, p.Run(ctx, 7))

	dispatched := b.Dispatched()
	require.Len(t, dispatched, 1)
	assert.Equal(t, "7:asr:42", dispatched[0].ID)
}
