package stages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/storage"
	"github.com/shopdesk/pipeline/pkg/testutil"
)

func TestDocQARunExtractsFields(t *testing.T) {
	ctx := context.Background()
	log := eventlog.New(testutil.NewFakeEventRepo())
	store := storage.NewSandbox()
	key, err := store.Put(ctx, []byte("doc-bytes"), "application/pdf", "invoice.pdf")
	require.NoError(t, err)

	att := models.Attachment{ID: 2, MessageID: 10, StorageKey: key, MIME: "application/pdf"}

	docqa := stages.DocQA{Storage: store, Model: ml.Sandbox{}}
	payload, err := docqa.Run(ctx, log, &att)
	require.NoError(t, err)

	p, ok := payload.(models.DocQADonePayload)
	require.True(t, ok)
	assert.Equal(t, int64(2), p.AttachmentID)
	assert.Equal(t, int64(10), p.MessageID)
	require.NotNil(t, p.Fields.OrderID)
	assert.Equal(t, "A10023", *p.Fields.OrderID)
}

func TestDocQAAcceptsDocsAndImagesNotAudio(t *testing.T) {
	docqa := stages.DocQA{}
	assert.True(t, docqa.Accept("application/pdf"))
	assert.True(t, docqa.Accept("image/jpeg"))
	assert.False(t, docqa.Accept("audio/mpeg"))
}

func TestDocQAHasNoTerminalSignal(t *testing.T) {
	docqa := stages.DocQA{}
	_, ok := docqa.Terminal(&models.Attachment{MIME: "audio/mpeg"})
	assert.False(t, ok)
}
