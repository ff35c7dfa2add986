// Package testutil holds small map-backed fakes for the repository and
// broker interfaces used by stage/orchestrator/aggregator unit tests, so
// those tests exercise branch logic without a live Postgres or Redis
// (spec's test-tooling convention — see SPEC_FULL.md §10.4).
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/models"
	"github.com/shopdesk/pipeline/pkg/store"
)

// FakeEventRepo is an in-memory eventlog.EventRepo.
type FakeEventRepo struct {
	mu     sync.Mutex
	nextID int64
	byMsg  map[int64][]models.Event
}

// NewFakeEventRepo returns an empty FakeEventRepo.
func NewFakeEventRepo() *FakeEventRepo {
	return &FakeEventRepo{byMsg: make(map[int64][]models.Event)}
}

func (f *FakeEventRepo) Append(_ context.Context, ticketID *int64, messageID *int64, typ models.EventType, payload any) (*models.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := models.Event{ID: f.nextID, TicketID: ticketID, MessageID: messageID, Type: typ, Payload: raw, Timestamp: time.Now()}
	if messageID != nil {
		f.byMsg[*messageID] = append(f.byMsg[*messageID], e)
	}
	return &e, nil
}

func (f *FakeEventRepo) Latest(_ context.Context, messageID int64, typ models.EventType) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.byMsg[messageID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			e := events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *FakeEventRepo) All(_ context.Context, messageID int64) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Event, len(f.byMsg[messageID]))
	copy(out, f.byMsg[messageID])
	return out, nil
}

func (f *FakeEventRepo) AllByTicket(_ context.Context, ticketID int64) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, events := range f.byMsg {
		for _, e := range events {
			if e.TicketID != nil && *e.TicketID == ticketID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// FakeMessageStore is an in-memory stand-in for *store.MessageStore,
// satisfying every loader/lister interface stage handlers depend on.
type FakeMessageStore struct {
	mu          sync.Mutex
	nextMsgID   int64
	nextAttID   int64
	messages    map[int64]models.Message
	attachments map[int64]models.Attachment
	byMessage   map[int64][]int64
}

// NewFakeMessageStore returns an empty FakeMessageStore.
func NewFakeMessageStore() *FakeMessageStore {
	return &FakeMessageStore{
		messages:    make(map[int64]models.Message),
		attachments: make(map[int64]models.Attachment),
		byMessage:   make(map[int64][]int64),
	}
}

// PutMessage inserts (or overwrites) a message at a caller-chosen ID, for
// tests that want to seed fixture data directly.
func (f *FakeMessageStore) PutMessage(m models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[m.ID] = m
	if m.ID > f.nextMsgID {
		f.nextMsgID = m.ID
	}
}

// PutAttachment inserts (or overwrites) an attachment at a caller-chosen
// ID and registers it under its message.
func (f *FakeMessageStore) PutAttachment(a models.Attachment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.attachments[a.ID]; !exists {
		f.byMessage[a.MessageID] = append(f.byMessage[a.MessageID], a.ID)
	}
	f.attachments[a.ID] = a
	if a.ID > f.nextAttID {
		f.nextAttID = a.ID
	}
}

func (f *FakeMessageStore) UpsertMessage(_ context.Context, m models.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ExternalID != nil {
		for id, existing := range f.messages {
			if existing.Source == m.Source && existing.ExternalID != nil && *existing.ExternalID == *m.ExternalID {
				existing.Subject = m.Subject
				f.messages[id] = existing
				return id, nil
			}
		}
	}
	f.nextMsgID++
	m.ID = f.nextMsgID
	f.messages[m.ID] = m
	return m.ID, nil
}

func (f *FakeMessageStore) InsertAttachments(_ context.Context, messageID int64, atts []models.Attachment) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(atts))
	for _, a := range atts {
		f.nextAttID++
		a.ID = f.nextAttID
		a.MessageID = messageID
		f.attachments[a.ID] = a
		f.byMessage[messageID] = append(f.byMessage[messageID], a.ID)
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (f *FakeMessageStore) GetMessage(_ context.Context, id int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (f *FakeMessageStore) GetAttachment(_ context.Context, id int64) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (f *FakeMessageStore) ListAttachments(_ context.Context, messageID int64) ([]models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.byMessage[messageID]
	out := make([]models.Attachment, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.attachments[id])
	}
	return out, nil
}

// FakeTicketStore is an in-memory stand-in for *store.TicketStore.
type FakeTicketStore struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]models.Ticket
	byMessage map[int64]int64
}

// NewFakeTicketStore returns an empty FakeTicketStore.
func NewFakeTicketStore() *FakeTicketStore {
	return &FakeTicketStore{byID: make(map[int64]models.Ticket), byMessage: make(map[int64]int64)}
}

func (f *FakeTicketStore) GetByMessage(_ context.Context, messageID int64) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byMessage[messageID]
	if !ok {
		return nil, store.ErrNotFound
	}
	t := f.byID[id]
	return &t, nil
}

func (f *FakeTicketStore) Create(_ context.Context, t models.Ticket) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byMessage[t.MessageID]; ok {
		existing := f.byID[id]
		return &existing, nil
	}
	f.nextID++
	t.ID = f.nextID
	if t.Status == "" {
		t.Status = models.TicketStatusNew
	}
	f.byID[t.ID] = t
	f.byMessage[t.MessageID] = t.ID
	return &t, nil
}

// Dump returns every ticket created so far, for tests asserting on count
// or contents without a dedicated lookup.
func (f *FakeTicketStore) Dump() []models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Ticket, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out
}

// FakeBroker is an in-memory broker.Broker recording every dispatch, with
// the same task-ID dedup semantics as the Redis implementation.
type FakeBroker struct {
	mu         sync.Mutex
	dispatched []broker.Task
	seen       map[string]bool
	ready      []*broker.Task
}

// NewFakeBroker returns an empty FakeBroker.
func NewFakeBroker() *FakeBroker {
	return &FakeBroker{seen: make(map[string]bool)}
}

func (b *FakeBroker) Dispatch(_ context.Context, name string, args map[string]any, taskID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen[taskID] {
		return nil
	}
	b.seen[taskID] = true
	task := broker.Task{ID: taskID, Name: name, Args: args}
	b.dispatched = append(b.dispatched, task)
	b.ready = append(b.ready, &task)
	return nil
}

func (b *FakeBroker) Pop(_ context.Context) (*broker.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ready) == 0 {
		return nil, broker.ErrEmpty
	}
	t := b.ready[0]
	b.ready = b.ready[1:]
	return t, nil
}

// Dispatched returns every dispatch call recorded so far, in order.
func (b *FakeBroker) Dispatched() []broker.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broker.Task, len(b.dispatched))
	copy(out, b.dispatched)
	return out
}

// DispatchCount reports how many recorded dispatches carry taskID — at
// most 1, since a repeated ID is dropped — used to assert dedup behavior
// (spec §8 property 2).
func (b *FakeBroker) DispatchCount(taskID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.dispatched {
		if t.ID == taskID {
			n++
		}
	}
	return n
}
