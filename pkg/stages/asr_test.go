package stages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stage"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/storage"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

func TestASRRunTranscribesAudioAttachment(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	store := storage.NewSandbox()
	key, err := store.Put(ctx, []byte("audio-bytes"), "audio/mpeg", "voicemail.mp3")
	require.NoError(t, err)

	attachments := testutil.NewFakeMessageStore()
	att := models.Attachment{ID: 1, MessageID: 10, StorageKey: key, MIME: "audio/mpeg"}
	attachments.PutAttachment(att)

	asr := stages.ASR{Storage: store, Model: ml.Sandbox{}}
	payload, err := asr.Run(ctx, log, &att)
	require.NoError(t, err)

	p, ok := payload.(models.ASRDonePayload)
	require.True(t, ok)
	assert.Equal(t, int64(1), p.AttachmentID)
	assert.Equal(t, int64(10), p.MessageID)
	assert.NotEmpty(t, p.Text)
	assert.Greater(t, p.Confidence, 0.0)
}

func TestASRAcceptsOnlyAudio(t *testing.T) {
	asr := stages.ASR{}
	assert.True(t, asr.Accept("audio/mpeg"))
	assert.True(t, asr.Accept("audio/wav"))
	assert.False(t, asr.Accept("application/pdf"))
	assert.False(t, asr.Accept("image/png"))
}

func TestASRHasNoTerminalSignal(t *testing.T) {
	asr := stages.ASR{}
	_, ok := asr.Terminal(&models.Attachment{MIME: "application/pdf"})
	assert.False(t, ok, "ASR silently skips unsupported attachments rather than recording a terminal event")
}

func TestASRViaRunForAttachmentEndToEnd(t *testing.T) {
	ctx := context.Background()
	events := testutil.NewFakeEventRepo()
	log := eventlog.New(events)
	store := storage.NewSandbox()
	key, err := store.Put(ctx, []byte("audio-bytes"), "audio/mpeg", "voicemail.mp3")
	require.NoError(t, err)

	attachments := testutil.NewFakeMessageStore()
	attachments.PutAttachment(models.Attachment{ID: 1, MessageID: 10, StorageKey: key, MIME: "audio/mpeg"})

	asr := stages.ASR{Storage: store, Model: ml.Sandbox{}}
	ran, err := stage.RunForAttachment(ctx, log, attachments, asr, 1)
	require.NoError(t, err)
	assert.True(t, ran)

	done, err := log.Done(ctx, 10, models.EventASRDone)
	require.NoError(t, err)
	assert.True(t, done)
}
