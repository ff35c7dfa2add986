// Package models defines the pipeline's core data model (spec §3): the
// immutable Message/Attachment pair created by ingestion collaborators, the
// append-only Event log, the Ticket materialized by the aggregator, and the
// structured per-stage payload shapes exchanged through the event log.
package models

import "time"

// Message is the canonical inbound artifact: an email or upload, reduced to
// its routing identity and body text. Immutable once created.
type Message struct {
	ID         int64
	Source     string
	ExternalID *string
	Subject    *string
	FromAddr   *string
	BodyText   *string
	CreatedAt  time.Time
}

// Attachment is owned by exactly one Message and created once.
type Attachment struct {
	ID          int64
	MessageID   int64
	StorageKey  string
	MIME        string
	Filename    string
	SizeBytes   int64
	ContentHash string
	CreatedAt   time.Time
}

// Ticket is the aggregator's terminal output: at most one per message.
type Ticket struct {
	ID         int64
	MessageID  int64
	ExternalID *string
	Status     string
	Route      *string
	Summary    *string
	DraftReply *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	TicketStatusNew = "new"
)
