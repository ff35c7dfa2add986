package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/models"
)

// TicketStore persists the ticket created once per message (spec §4.7/§6:
// tickets.message_id is unique — create_ticket is idempotent by that
// constraint as well as by the event log).
type TicketStore struct {
	db *sql.DB
}

// NewTicketStore wraps a *sql.DB.
func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Create inserts a new ticket row. Returns the existing ticket, unchanged,
// if one already exists for this message — callers normally avoid this by
// checking the event log first, but the unique constraint on message_id
// backstops a race between two workers.
func (s *TicketStore) Create(ctx context.Context, t models.Ticket) (*models.Ticket, error) {
	var out models.Ticket
	err := s.db.QueryRowContext(ctx, `
		insert into tickets (message_id, external_id, status, route, summary, draft_reply)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (message_id) do update set message_id = excluded.message_id
		returning id, message_id, external_id, status, route, summary, draft_reply, created_at, updated_at
	`, t.MessageID, t.ExternalID, t.Status, t.Route, t.Summary, t.DraftReply).
		Scan(&out.ID, &out.MessageID, &out.ExternalID, &out.Status, &out.Route, &out.Summary, &out.DraftReply, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create ticket for message %d: %w", t.MessageID, err)
	}
	return &out, nil
}

// GetByMessage loads the ticket for a message, or ErrNotFound if none
// exists yet.
func (s *TicketStore) GetByMessage(ctx context.Context, messageID int64) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.QueryRowContext(ctx, `
		select id, message_id, external_id, status, route, summary, draft_reply, created_at, updated_at
		from tickets where message_id = $1
	`, messageID).Scan(&t.ID, &t.MessageID, &t.ExternalID, &t.Status, &t.Route, &t.Summary, &t.DraftReply, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get ticket for message %d: %w", messageID, err)
	}
	return &t, nil
}

// UpdateExternal records the external help-desk ticket ID once the
// collaborator call succeeds.
func (s *TicketStore) UpdateExternal(ctx context.Context, id int64, externalID string) error {
	_, err := s.db.ExecContext(ctx, `
		update tickets set external_id = $2, updated_at = now() where id = $1
	`, id, externalID)
	if err != nil {
		return fmt.Errorf("store: update ticket %d external id: %w", id, err)
	}
	return nil
}
