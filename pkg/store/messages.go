// Package store is the hand-written repository layer over Postgres that
// replaces the teacher's ent-generated client: one file per aggregate,
// each a thin set of methods over *sql.DB/*sql.Tx built on raw SQL,
// grounded on original_source/common/db/dao.py's MessageRepository shape.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/models"
)

// MessageStore persists inbound messages and their attachments.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore wraps a *sql.DB.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// UpsertMessage inserts a message, or — when (source, external_id) already
// exists — updates its subject and returns the existing row's ID. This is
// the idempotence boundary for re-delivered inbound mail/webhooks (spec
// §8 item 1): re-ingesting the same external_id never creates a duplicate
// message row.
func (s *MessageStore) UpsertMessage(ctx context.Context, m models.Message) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into messages (source, external_id, subject, from_addr, body_text)
		values ($1, $2, $3, $4, $5)
		on conflict (source, external_id) where external_id is not null
		do update set subject = excluded.subject
		returning id
	`, m.Source, m.ExternalID, m.Subject, m.FromAddr, m.BodyText).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: upsert message: %w", err)
	}
	return id, nil
}

// InsertAttachments bulk-inserts attachments for a message and returns
// their assigned IDs in input order.
func (s *MessageStore) InsertAttachments(ctx context.Context, messageID int64, atts []models.Attachment) ([]int64, error) {
	if len(atts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin insert attachments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(atts))
	for _, a := range atts {
		var id int64
		err := tx.QueryRowContext(ctx, `
			insert into attachments (message_id, storage_key, mime, filename, size_bytes, content_hash)
			values ($1, $2, $3, $4, $5, $6)
			returning id
		`, messageID, a.StorageKey, a.MIME, a.Filename, a.SizeBytes, a.ContentHash).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("store: insert attachment: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit insert attachments: %w", err)
	}
	return ids, nil
}

// GetMessage loads a message by ID.
func (s *MessageStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	var m models.Message
	err := s.db.QueryRowContext(ctx, `
		select id, source, external_id, subject, from_addr, body_text, created_at
		from messages where id = $1
	`, id).Scan(&m.ID, &m.Source, &m.ExternalID, &m.Subject, &m.FromAddr, &m.BodyText, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get message %d: %w", id, err)
	}
	return &m, nil
}

// ListAttachments returns every attachment belonging to a message, ordered
// by ID (insertion order).
func (s *MessageStore) ListAttachments(ctx context.Context, messageID int64) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, message_id, storage_key, mime, filename, size_bytes, content_hash, created_at
		from attachments where message_id = $1 order by id
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("store: list attachments for message %d: %w", messageID, err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.StorageKey, &a.MIME, &a.Filename, &a.SizeBytes, &a.ContentHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan attachment: %w", err)
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

// GetAttachment loads a single attachment by ID.
func (s *MessageStore) GetAttachment(ctx context.Context, id int64) (*models.Attachment, error) {
	var a models.Attachment
	err := s.db.QueryRowContext(ctx, `
		select id, message_id, storage_key, mime, filename, size_bytes, content_hash, created_at
		from attachments where id = $1
	`, id).Scan(&a.ID, &a.MessageID, &a.StorageKey, &a.MIME, &a.Filename, &a.SizeBytes, &a.ContentHash, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get attachment %d: %w", id, err)
	}
	return &a, nil
}
