package helpdesk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopdesk/pipeline/pkg/ttlcache"
)

// Sandbox is the deterministic stub Client, ported from zendesk.py's
// _sandbox_enabled() branch (create_ticket returns "zd_stub_{subject}",
// add_public_comment is a no-op success). It also records each created
// external ID in a process-local, time-bounded cache; no method of Sandbox
// reads that cache back.
type Sandbox struct {
	cache *ttlcache.Cache[string, string]
}

// NewSandbox returns a Sandbox with a 600-second lookup cache, matching
// the TTL every collaborator client in this pipeline uses (spec §5).
func NewSandbox() *Sandbox {
	return &Sandbox{cache: ttlcache.New[string, string](600 * time.Second)}
}

var _ Client = (*Sandbox)(nil)

// CreateTicket implements Client.
func (s *Sandbox) CreateTicket(ctx context.Context, ticket Ticket) (string, error) {
	id := fmt.Sprintf("zd_stub_%s", ticket.Subject)
	s.cache.Set(id, ticket.Subject)
	return id, nil
}

// AddPublicComment implements Client.
func (s *Sandbox) AddPublicComment(ctx context.Context, externalID, body string) error {
	return nil
}
