package stage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

type messageRunner struct {
	event   models.EventType
	payload any
	err     error
	calls   int
}

func (r *messageRunner) DoneEvent() models.EventType { return r.event }
func (r *messageRunner) Run(_ context.Context, _ *eventlog.Log, _ *models.Message) (any, error) {
	r.calls++
	return r.payload, r.err
}

func TestRunForMessageSkipsWhenAlreadyDone(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()
	messages.PutMessage(models.Message{ID: 1, Source: "email"})

	typ := models.EventType("CLASSIFY_DONE")
	_, err := events.Append(ctx, nil, int64Ptr(1), typ, map[string]any{"already": "done"})
	require.NoError(t, err)

	r := &messageRunner{event: typ, payload: map[string]any{"x": 1}}
	ran, err := stage.RunForMessage(ctx, log, messages, r, 1)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 0, r.calls, "stage must not run when the done event already exists")
}

func TestRunForMessageMissingMessageIsNotAnError(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	messages := testutil.NewFakeMessageStore()

	r := &messageRunner{event: "CLASSIFY_DONE", payload: map[string]any{"x": 1}}
	ran, err := stage.RunForMessage(ctx, log, messages, r, 999)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRunForMessageRecordsPayloadAndMarksDone(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()
	messages.PutMessage(models.Message{ID: 1, Source: "email"})

	typ := models.EventType("SUMMARY_DONE")
	r := &messageRunner{event: typ, payload: map[string]any{"summary": "hi"}}
	ran, err := stage.RunForMessage(ctx, log, messages, r, 1)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, r.calls)

	done, err := log.Done(ctx, 1, typ)
	require.NoError(t, err)
	assert.True(t, done)

	// Running again must be a no-op (idempotence, spec §8 property 1).
	ran, err = stage.RunForMessage(ctx, log, messages, r, 1)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, r.calls)
}

func TestRunForMessageNilPayloadRecordsNothing(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	messages := testutil.NewFakeMessageStore()
	messages.PutMessage(models.Message{ID: 1, Source: "email"})

	typ := models.EventType("DOCQA_SELECTED")
	r := &messageRunner{event: typ, payload: nil}
	ran, err := stage.RunForMessage(ctx, log, messages, r, 1)
	require.NoError(t, err)
	assert.False(t, ran)

	done, err := log.Done(ctx, 1, typ)
	require.NoError(t, err)
	assert.False(t, done)
}

type attachmentRunner struct {
	event        models.EventType
	accept       bool
	terminalOK   bool
	terminalData any
	payload      any
	calls        int
}

func (r *attachmentRunner) DoneEvent() models.EventType { return r.event }
func (r *attachmentRunner) Accept(string) bool          { return r.accept }
func (r *attachmentRunner) Terminal(*models.Attachment) (any, bool) {
	return r.terminalData, r.terminalOK
}
func (r *attachmentRunner) Run(_ context.Context, _ *eventlog.Log, _ *models.Attachment) (any, error) {
	r.calls++
	return r.payload, nil
}

func TestRunForAttachmentRejectedMIMEWithTerminalStillRecordsEvent(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	attachments := testutil.NewFakeMessageStore()
	attachments.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "application/pdf"})

	typ := models.EventType("VQA_DONE")
	r := &attachmentRunner{event: typ, accept: false, terminalOK: true, terminalData: map[string]any{"reason": "pdf_not_supported"}}
	ran, err := stage.RunForAttachment(ctx, log, attachments, r, 1)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, r.calls, "Run must not be invoked on a terminal rejection")

	done, err := log.Done(ctx, 1, typ)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunForAttachmentRejectedMIMEWithoutTerminalSkipsSilently(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	attachments := testutil.NewFakeMessageStore()
	attachments.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "text/plain"})

	typ := models.EventType("ASR_DONE")
	r := &attachmentRunner{event: typ, accept: false, terminalOK: false}
	ran, err := stage.RunForAttachment(ctx, log, attachments, r, 1)
	require.NoError(t, err)
	assert.False(t, ran)

	done, err := log.Done(ctx, 1, typ)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunForAttachmentAcceptedMIMERuns(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	attachments := testutil.NewFakeMessageStore()
	attachments.PutAttachment(models.Attachment{ID: 1, MessageID: 1, MIME: "audio/mpeg"})

	typ := models.EventType("ASR_DONE")
	r := &attachmentRunner{event: typ, accept: true, payload: map[string]any{"text": "hi"}}
	ran, err := stage.RunForAttachment(ctx, log, attachments, r, 1)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, r.calls)
}

func TestRunForAttachmentMissingAttachmentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	attachments := testutil.NewFakeMessageStore()

	r := &attachmentRunner{event: "ASR_DONE", accept: true}
	ran, err := stage.RunForAttachment(ctx, log, attachments, r, 999)
	require.NoError(t, err)
	assert.False(t, ran)
}

func int64Ptr(v int64) *int64 { return &v }
