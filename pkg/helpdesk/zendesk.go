package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ZendeskClient is the production Client: a Zendesk-shaped HTTP basic-auth
// API client, constructed once per process the way the teacher's
// collaborator clients are — NewClient for the standard subdomain-derived
// URL, NewClientWithAPIURL when the base URL must be overridden (sandbox
// instances, tests).
type ZendeskClient struct {
	httpClient *http.Client
	baseURL    string
	email      string
	apiToken   string
}

// NewClient builds a client against https://{subdomain}.zendesk.com/api/v2.
func NewClient(subdomain, email, apiToken string) *ZendeskClient {
	return NewClientWithAPIURL(fmt.Sprintf("https://%s.zendesk.com/api/v2", subdomain), email, apiToken)
}

// NewClientWithAPIURL builds a client against an explicit base URL
// (sandbox/mock Zendesk instances, integration tests).
func NewClientWithAPIURL(baseURL, email, apiToken string) *ZendeskClient {
	return &ZendeskClient{
		httpClient: http.DefaultClient,
		baseURL:    baseURL,
		email:      email,
		apiToken:   apiToken,
	}
}

var _ Client = (*ZendeskClient)(nil)

type ticketEnvelope struct {
	Ticket ticketBody `json:"ticket"`
}

type ticketBody struct {
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Comment     *struct {
		Body   string `json:"body"`
		Public bool   `json:"public"`
	} `json:"comment,omitempty"`
}

type ticketResponse struct {
	Ticket struct {
		ID int64 `json:"id"`
	} `json:"ticket"`
}

// CreateTicket implements Client.
func (c *ZendeskClient) CreateTicket(ctx context.Context, ticket Ticket) (string, error) {
	body := ticketEnvelope{Ticket: ticketBody{
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Priority:    ticket.Priority,
	}}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("helpdesk: marshal create ticket: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets.json", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("helpdesk: build create ticket request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("helpdesk: create ticket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("helpdesk: create ticket: unexpected status %d", resp.StatusCode)
	}

	var out ticketResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("helpdesk: decode create ticket response: %w", err)
	}
	return fmt.Sprintf("%d", out.Ticket.ID), nil
}

// AddPublicComment implements Client.
func (c *ZendeskClient) AddPublicComment(ctx context.Context, externalID, body string) error {
	comment := ticketEnvelope{Ticket: ticketBody{}}
	comment.Ticket.Comment = &struct {
		Body   string `json:"body"`
		Public bool   `json:"public"`
	}{Body: body, Public: true}

	raw, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("helpdesk: marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/tickets/%s.json", c.baseURL, externalID), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("helpdesk: build comment request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("helpdesk: add comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("helpdesk: add comment: unexpected status %d", resp.StatusCode)
	}
	return nil
}
