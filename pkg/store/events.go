package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/models"
)

// EventStore is the append-only event log every stage uses as its
// idempotence oracle: a task checks Latest before doing any work, and only
// ever does that work once per (message_id, type).
type EventStore struct {
	db *sql.DB
}

// NewEventStore wraps a *sql.DB.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Append inserts one event row. payload is marshaled to JSON.
func (s *EventStore) Append(ctx context.Context, ticketID *int64, messageID *int64, typ models.EventType, payload any) (*models.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("store: marshal event payload: %w", err)
	}

	var e models.Event
	err = s.db.QueryRowContext(ctx, `
		insert into events (ticket_id, message_id, type, payload)
		values ($1, $2, $3, $4::jsonb)
		returning id, ticket_id, message_id, type, payload, ts
	`, ticketID, messageID, typ, raw).Scan(&e.ID, &e.TicketID, &e.MessageID, &e.Type, &e.Payload, &e.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("store: append event %s: %w", typ, err)
	}
	return &e, nil
}

// Latest returns the most recent event of the given type for a message, or
// nil if none exists yet. This is the check-before-execute call every stage
// handler makes before doing any work (spec §4.6 idempotence rule).
func (s *EventStore) Latest(ctx context.Context, messageID int64, typ models.EventType) (*models.Event, error) {
	var e models.Event
	err := s.db.QueryRowContext(ctx, `
		select id, ticket_id, message_id, type, payload, ts
		from events
		where message_id = $1 and type = $2
		order by ts desc
		limit 1
	`, messageID, typ).Scan(&e.ID, &e.TicketID, &e.MessageID, &e.Type, &e.Payload, &e.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: latest event %s for message %d: %w", typ, messageID, err)
	}
	return &e, nil
}

// All returns every event recorded for a message, oldest first — used by
// the DocQA selector to gather every DOCQA_DONE candidate.
func (s *EventStore) All(ctx context.Context, messageID int64) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, ticket_id, message_id, type, payload, ts
		from events where message_id = $1 order by ts asc
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("store: list events for message %d: %w", messageID, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.TicketID, &e.MessageID, &e.Type, &e.Payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AllByTicket returns every event recorded against a ticket ID, oldest
// first.
func (s *EventStore) AllByTicket(ctx context.Context, ticketID int64) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, ticket_id, message_id, type, payload, ts
		from events where ticket_id = $1 order by ts asc
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("store: list events for ticket %d: %w", ticketID, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.TicketID, &e.MessageID, &e.Type, &e.Payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
