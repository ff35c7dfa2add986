// Package ingest is the ambient collaborator boundary spec §1 calls
// external to the core: it turns an inbound email-with-attachments or
// direct upload into the Message/Attachment rows the pipeline core reads,
// then triggers the orchestrator. Grounded on
// original_source/common/ingest/upload_service.py and
// original_source/api/app/routers/ingest.py.
package ingest

import (
	"context"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/storage"
)

// AttachmentInput is one attachment's raw bytes plus the filename/MIME the
// collaborator (mail parser or upload handler) observed.
type AttachmentInput struct {
	Filename string
	MIME     string
	Data     []byte
}

// MessageInput is everything needed to create a message and its
// attachments in one call.
type MessageInput struct {
	Source      string
	ExternalID  *string
	Subject     *string
	FromAddr    *string
	BodyText    *string
	Attachments []AttachmentInput
}

// MessageStore is the subset of *store.MessageStore this package needs.
type MessageStore interface {
	UpsertMessage(ctx context.Context, m models.Message) (int64, error)
	InsertAttachments(ctx context.Context, messageID int64, atts []models.Attachment) ([]int64, error)
}

// Runner triggers the orchestrator once ingestion completes.
type Runner interface {
	Run(ctx context.Context, messageID int64) error
}

// Service is the ingestion collaborator boundary: upsert the message
// (idempotent on (source, external_id), spec §3/§8 property 3/S3), store
// each attachment's bytes, insert attachment rows, and kick off the
// orchestrator.
type Service struct {
	Messages     MessageStore
	Storage      storage.Store
	Orchestrator Runner
}

// New builds a Service.
func New(messages MessageStore, store storage.Store, orch Runner) *Service {
	return &Service{Messages: messages, Storage: store, Orchestrator: orch}
}

// Ingest upserts the message and its attachments, then dispatches
// orchestrator.Run(message_id). Re-ingesting the same (source,
// external_id) is a no-op on the message row (the unique constraint
// backstops it) but still re-dispatches the orchestrator — harmless, since
// every orchestrator task is idempotent by the event log.
func (s *Service) Ingest(ctx context.Context, in MessageInput) (int64, error) {
	messageID, err := s.Messages.UpsertMessage(ctx, models.Message{
		Source:     in.Source,
		ExternalID: in.ExternalID,
		Subject:    in.Subject,
		FromAddr:   in.FromAddr,
		BodyText:   in.BodyText,
	})
	if err != nil {
		return 0, fmt.Errorf("ingest: upsert message: %w", err)
	}

	if len(in.Attachments) > 0 {
		atts := make([]models.Attachment, 0, len(in.Attachments))
		for _, a := range in.Attachments {
			key, err := s.Storage.Put(ctx, a.Data, a.MIME, a.Filename)
			if err != nil {
				return 0, fmt.Errorf("ingest: store attachment %s: %w", a.Filename, err)
			}
			atts = append(atts, models.Attachment{
				MessageID:   messageID,
				StorageKey:  key,
				MIME:        a.MIME,
				Filename:    a.Filename,
				SizeBytes:   int64(len(a.Data)),
				ContentHash: storage.HashBytes(a.Data),
			})
		}
		if _, err := s.Messages.InsertAttachments(ctx, messageID, atts); err != nil {
			return 0, fmt.Errorf("ingest: insert attachments for message %d: %w", messageID, err)
		}
	}

	if err := s.Orchestrator.Run(ctx, messageID); err != nil {
		return 0, fmt.Errorf("ingest: trigger orchestrator for message %d: %w", messageID, err)
	}

	return messageID, nil
}
