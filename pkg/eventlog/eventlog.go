// Package eventlog is the thin, typed facade every stage handler uses over
// pkg/store's event methods: every stage checks Latest before doing any
// work and calls Append exactly once it succeeds, making the whole pipeline
// idempotent under at-least-once task delivery (spec §4.6).
package eventlog

import (
	"context"
	"fmt"

	"github.com/shopdesk/pipeline/pkg/models"
)

// EventRepo is the subset of *store.EventStore this package needs;
// satisfied directly by that type. Stage/orchestrator/aggregator unit
// tests substitute a map-backed fake so they never need a live Postgres.
type EventRepo interface {
	Append(ctx context.Context, ticketID *int64, messageID *int64, typ models.EventType, payload any) (*models.Event, error)
	Latest(ctx context.Context, messageID int64, typ models.EventType) (*models.Event, error)
	All(ctx context.Context, messageID int64) ([]models.Event, error)
	AllByTicket(ctx context.Context, ticketID int64) ([]models.Event, error)
}

// Log is the append-only record of pipeline progress for a message.
type Log struct {
	events EventRepo
}

// New wraps an EventRepo (in production, a *store.EventStore).
func New(events EventRepo) *Log {
	return &Log{events: events}
}

// Done reports whether messageID already has a recorded event of type typ
// — the check every stage handler performs before doing any work.
func (l *Log) Done(ctx context.Context, messageID int64, typ models.EventType) (bool, error) {
	e, err := l.events.Latest(ctx, messageID, typ)
	if err != nil {
		return false, fmt.Errorf("eventlog: check %s for message %d: %w", typ, messageID, err)
	}
	return e != nil, nil
}

// Latest returns the most recent event of a type for a message, or nil if
// none exists.
func (l *Log) Latest(ctx context.Context, messageID int64, typ models.EventType) (*models.Event, error) {
	return l.events.Latest(ctx, messageID, typ)
}

// Record appends a *_done (or similar) event, marking the stage as
// complete for messageID. ticketID is nil until a ticket exists for the
// message (every event before EventTicketCreated has a nil ticket_id).
func (l *Log) Record(ctx context.Context, ticketID *int64, messageID int64, typ models.EventType, payload any) (*models.Event, error) {
	e, err := l.events.Append(ctx, ticketID, &messageID, typ, payload)
	if err != nil {
		return nil, fmt.Errorf("eventlog: record %s for message %d: %w", typ, messageID, err)
	}
	return e, nil
}

// All returns every event recorded for a message, oldest first — used by
// the DocQA selector to gather every DOCQA_DONE candidate.
func (l *Log) All(ctx context.Context, messageID int64) ([]models.Event, error) {
	return l.events.All(ctx, messageID)
}

// AllByTicket returns every event recorded against a ticket, oldest first.
func (l *Log) AllByTicket(ctx context.Context, ticketID int64) ([]models.Event, error) {
	return l.events.AllByTicket(ctx, ticketID)
}
