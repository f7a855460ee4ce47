package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	ev := New(BudgetCreated, "u1", "b1", at)
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
	if ev.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp should be normalized to UTC")
	}

	if err := New("budget.exploded", "u1", "", at).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for unknown type, got %v", err)
	}
	if err := New(GoalCreated, "", "", at).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing user, got %v", err)
	}
}

func TestAffectsBudgets(t *testing.T) {
	if !TransactionRecorded.AffectsBudgets() || !BudgetDeleted.AffectsBudgets() {
		t.Fatalf("transactions and budgets change metrics")
	}
	if GoalCreated.AffectsBudgets() || BillCreated.AffectsBudgets() {
		t.Fatalf("goals and bills do not change metrics")
	}
}

func TestBusDelivery(t *testing.T) {
	bus := NewBus()
	var typed, all []Type
	bus.Subscribe(BudgetCreated, func(_ context.Context, ev Event) error {
		typed = append(typed, ev.Type)
		return nil
	})
	bus.Subscribe("", func(_ context.Context, ev Event) error {
		all = append(all, ev.Type)
		return nil
	})

	ctx := context.Background()
	_ = bus.Publish(ctx, Event{Type: BudgetCreated, UserID: "u"})
	_ = bus.Publish(ctx, Event{Type: GoalCreated, UserID: "u"})

	if len(typed) != 1 || typed[0] != BudgetCreated {
		t.Fatalf("typed subscriber got %v", typed)
	}
	if len(all) != 2 {
		t.Fatalf("wildcard subscriber got %v", all)
	}
}

func TestBusJoinsHandlerErrors(t *testing.T) {
	bus := NewBus()
	errA, errB := errors.New("a"), errors.New("b")
	calls := 0
	bus.Subscribe("", func(context.Context, Event) error { calls++; return errA })
	bus.Subscribe("", func(context.Context, Event) error { calls++; return errB })

	err := bus.Publish(context.Background(), Event{Type: BillCreated})
	if calls != 2 {
		t.Fatalf("every handler must run, got %d calls", calls)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestFanout(t *testing.T) {
	var got int
	count := PublisherFunc(func(context.Context, Event) error { got++; return nil })
	boom := errors.New("broker down")
	failing := PublisherFunc(func(context.Context, Event) error { return boom })

	err := Fanout{count, nil, failing, count, Discard}.Publish(context.Background(), Event{})
	if got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestAsyncDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	next := PublisherFunc(func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.RecordID)
		return nil
	})

	a := NewAsync(next, 8, time.Second, nil)
	for _, id := range []string{"a", "b", "c"} {
		if err := a.Publish(context.Background(), Event{Type: GoalCreated, UserID: "u", RecordID: id}); err != nil {
			t.Fatalf("Publish(%s) error = %v", id, err)
		}
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("delivered %v, want [a b c]", got)
	}
	if err := a.Publish(context.Background(), Event{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after Close error = %v, want ErrClosed", err)
	}
}

func TestAsyncDoesNotWaitForSlowPublisher(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	errs := make(chan error, 4)
	slow := PublisherFunc(func(ctx context.Context, _ Event) error {
		entered <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	a := NewAsync(slow, 1, 200*time.Millisecond, func(_ Event, err error) { errs <- err })
	ctx := context.Background()

	if err := a.Publish(ctx, Event{RecordID: "1"}); err != nil {
		t.Fatalf("first Publish error = %v", err)
	}
	<-entered
	if err := a.Publish(ctx, Event{RecordID: "2"}); err != nil {
		t.Fatalf("queued Publish error = %v", err)
	}
	if err := a.Publish(ctx, Event{RecordID: "3"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Publish on full queue error = %v, want ErrQueueFull", err)
	}
	if err := <-errs; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("delivery error = %v, want deadline exceeded", err)
	}
	close(release)
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
