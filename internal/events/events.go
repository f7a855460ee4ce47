// Package events carries notifications about saved records between the
// service layer and its subscribers (in-process or over AMQP).
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Type string

const (
	BudgetCreated       Type = "budget.created"
	BudgetUpdated       Type = "budget.updated"
	BudgetDeleted       Type = "budget.deleted"
	CategoryCreated     Type = "category.created"
	TransactionRecorded Type = "transaction.recorded"
	TransactionDeleted  Type = "transaction.deleted"
	GoalCreated         Type = "goal.created"
	BillCreated         Type = "bill.created"
	AccountCreated      Type = "account.created"
)

var ErrInvalidEvent = errors.New("invalid event")

func (t Type) Valid() bool {
	switch t {
	case BudgetCreated, BudgetUpdated, BudgetDeleted, CategoryCreated,
		TransactionRecorded, TransactionDeleted, GoalCreated, BillCreated, AccountCreated:
		return true
	}
	return false
}

// AffectsBudgets reports whether events of this type can change budget metrics.
func (t Type) AffectsBudgets() bool {
	switch t {
	case BudgetCreated, BudgetUpdated, BudgetDeleted, CategoryCreated,
		TransactionRecorded, TransactionDeleted:
		return true
	}
	return false
}

type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, userID, recordID string, at time.Time) Event {
	return Event{Type: t, UserID: userID, RecordID: recordID, Timestamp: at.UTC()}
}

func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("type %q: %w", e.Type, ErrInvalidEvent)
	}
	if e.UserID == "" {
		return fmt.Errorf("missing user id: %w", ErrInvalidEvent)
	}
	return nil
}

// Publisher delivers events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

type Handler func(ctx context.Context, ev Event) error

// Bus is an in-process publisher. Handlers run synchronously in
// subscription order; handler errors are joined and returned.
type Bus struct {
	mu     sync.RWMutex
	byType map[Type][]Handler
	any    []Handler
}

func NewBus() *Bus {
	return &Bus{byType: map[Type][]Handler{}}
}

// Subscribe registers h for events of type t. An empty type subscribes to all.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t == "" {
		b.any = append(b.any, h)
		return
	}
	b.byType[t] = append(b.byType[t], h)
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byType[ev.Type])+len(b.any))
	handlers = append(handlers, b.byType[ev.Type]...)
	handlers = append(handlers, b.any...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
