// Package helpdesk is the external help-desk contract the aggregator (C6)
// uses to create and update the customer-facing ticket, grounded on
// original_source/common/clients/zendesk.py's basic-auth HTTP client.
package helpdesk

import "context"

// Ticket is the subset of ticket fields the help-desk API accepts on
// creation.
type Ticket struct {
	Subject     string
	Description string
	Route       string
	Priority    string
}

// Client is the minimal contract the aggregator depends on.
type Client interface {
	// CreateTicket creates a ticket and returns the collaborator's
	// external ticket ID.
	CreateTicket(ctx context.Context, ticket Ticket) (externalID string, err error)
	// AddPublicComment appends a public comment (e.g. the draft reply) to
	// an existing ticket.
	AddPublicComment(ctx context.Context, externalID, body string) error
}
