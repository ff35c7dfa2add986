// Package aggregator implements the ticket builder (C6): joins terminal
// events into a single ticket creation, guarded by both the event log and
// the tickets table (spec §4.6). Grounded on
// original_source/worker/jobs/celery_tasks.py's `_create_ticket`.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/helpdesk"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/store"
)

// TaskCreateTicket is the task name the orchestrator dispatches to run
// the aggregator.
const TaskCreateTicket = "create_ticket"

// TicketStore is the subset of *store.TicketStore the aggregator needs;
// satisfied directly by that type.
type TicketStore interface {
	GetByMessage(ctx context.Context, messageID int64) (*models.Ticket, error)
	Create(ctx context.Context, t models.Ticket) (*models.Ticket, error)
}

// Aggregator is the ticket builder (C6).
type Aggregator struct {
	Log      *eventlog.Log
	Tickets  TicketStore
	Helpdesk helpdesk.Client
}

// New builds an Aggregator. Helpdesk may be nil to skip the external
// side-effectful tail entirely (spec §6: the help-desk contract "may be
// stubbed" and "must not block pipeline progress on failure beyond the
// ticket stage's own retries").
func New(log *eventlog.Log, tickets TicketStore, hd helpdesk.Client) *Aggregator {
	return &Aggregator{Log: log, Tickets: tickets, Helpdesk: hd}
}

// Run implements `create_ticket(message_id)` (spec §4.6): idempotent by
// both the event log and the tickets table's unique constraint on
// message_id (spec §3 invariant 4, §8 property 4).
func (a *Aggregator) Run(ctx context.Context, messageID int64) error {
	if done, err := a.Log.Done(ctx, messageID, models.EventTicketCreated); err != nil {
		return fmt.Errorf("aggregator: check TICKET_CREATED for message %d: %w", messageID, err)
	} else if done {
		return nil
	}

	if existing, err := a.Tickets.GetByMessage(ctx, messageID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("aggregator: lookup ticket for message %d: %w", messageID, err)
	} else if err == nil {
		_, err := a.Log.Record(ctx, &existing.ID, messageID, models.EventTicketCreated, models.TicketCreatedPayload{
			MessageID: messageID,
			TicketID:  existing.ID,
			Route:     existing.Route,
			Summary:   existing.Summary,
		})
		return err
	}

	route := a.readRoute(ctx, messageID)
	summary := a.readSummary(ctx, messageID)
	normalized := a.readNormalized(ctx, messageID)
	docFields := a.readDocFields(ctx, messageID)

	ticket, err := a.Tickets.Create(ctx, models.Ticket{
		MessageID: messageID,
		Status:    models.TicketStatusNew,
		Route:     route,
		Summary:   summary,
	})
	if err != nil {
		return fmt.Errorf("aggregator: create ticket for message %d: %w", messageID, err)
	}

	_, err = a.Log.Record(ctx, &ticket.ID, messageID, models.EventTicketCreated, models.TicketCreatedPayload{
		MessageID:  messageID,
		TicketID:   ticket.ID,
		Route:      route,
		Summary:    summary,
		Normalized: normalized,
		DocFields:  docFields,
	})
	if err != nil {
		return fmt.Errorf("aggregator: record TICKET_CREATED for message %d: %w", messageID, err)
	}

	a.notifyHelpdesk(ctx, messageID, ticket, summary)
	return nil
}

// notifyHelpdesk creates the external help-desk ticket, best-effort: a
// failure here never fails Run or blocks pipeline progress (spec §6, §7
// — correctness of aggregation is preferred to blocking on any single
// enrichment).
func (a *Aggregator) notifyHelpdesk(ctx context.Context, messageID int64, ticket *models.Ticket, summary *string) {
	if a.Helpdesk == nil {
		return
	}
	body := ""
	if summary != nil {
		body = *summary
	}
	externalID, err := a.Helpdesk.CreateTicket(ctx, helpdesk.Ticket{
		Subject:     fmt.Sprintf("message-%d", messageID),
		Description: body,
	})
	if err != nil {
		slog.Warn("helpdesk ticket creation failed", "message_id", messageID, "error", err)
		return
	}
	slog.Info("helpdesk ticket created", "message_id", messageID, "external_id", externalID)
}

func (a *Aggregator) readRoute(ctx context.Context, messageID int64) *string {
	e, err := a.Log.Latest(ctx, messageID, models.EventClassifyDone)
	if err != nil || e == nil {
		return nil
	}
	var p models.ClassifyDonePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil
	}
	label := string(p.Label)
	return &label
}

func (a *Aggregator) readSummary(ctx context.Context, messageID int64) *string {
	e, err := a.Log.Latest(ctx, messageID, models.EventSummaryDone)
	if err != nil || e == nil {
		return nil
	}
	var p models.SummaryDonePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil
	}
	return &p.Summary
}

func (a *Aggregator) readNormalized(ctx context.Context, messageID int64) models.NormalizedFields {
	e, err := a.Log.Latest(ctx, messageID, models.EventNormalizeDone)
	if err != nil || e == nil {
		return models.NormalizedFields{}
	}
	var p models.NormalizeDonePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return models.NormalizedFields{}
	}
	return p.Normalized
}

func (a *Aggregator) readDocFields(ctx context.Context, messageID int64) models.DocFields {
	e, err := a.Log.Latest(ctx, messageID, models.EventDocQASelected)
	if err != nil || e == nil {
		return models.DocFields{}
	}
	var p models.DocQASelectedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return models.DocFields{}
	}
	return p.Fields
}
