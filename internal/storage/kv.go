package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record id is not present in a collection.
var ErrNotFound = errors.New("record not found")

// Storage keys, one JSON array per key and user.
const (
	KeyBudgets      = "budgets"
	KeyCategories   = "categories"
	KeyTransactions = "transactions"
	KeyGoals        = "goals"
	KeyBills        = "bills"
	KeyAccounts     = "accounts"
)

// KV is a per-user blob store. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, userID, key string) ([]byte, error)
	Set(ctx context.Context, userID, key string, value []byte) error
	Delete(ctx context.Context, userID, key string) error
	Close() error
}

// Record is implemented by every persisted domain record.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
}

// Collection is a typed JSON array stored under a single key.
// Every mutation reads the whole array and writes it back; concurrent writers
// in different processes follow last-write-wins.
type Collection[T Record[T]] struct {
	kv    KV
	key   string
	mu    sync.Mutex
	newID func() string
}

func NewCollection[T Record[T]](kv KV, key string) *Collection[T] {
	return &Collection[T]{kv: kv, key: key, newID: uuid.NewString}
}

// Key returns the storage key backing the collection.
func (c *Collection[T]) Key() string { return c.key }

// All returns every record of the user. A missing key yields an empty slice.
func (c *Collection[T]) All(ctx context.Context, userID string) ([]T, error) {
	return c.load(ctx, userID)
}

// Get returns the record with the given id or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, userID, id string) (T, error) {
	var zero T
	items, err := c.load(ctx, userID)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if it.RecordID() == id {
			return it, nil
		}
	}
	return zero, fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
}

// Append stores rec, assigning a new id when it has none, and returns the
// stored record.
func (c *Collection[T]) Append(ctx context.Context, userID string, rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	items, err := c.load(ctx, userID)
	if err != nil {
		return zero, err
	}
	if rec.RecordID() == "" {
		rec = rec.WithID(c.newID())
	}
	items = append(items, rec)
	if err := c.save(ctx, userID, items); err != nil {
		return zero, err
	}
	return rec, nil
}

// Replace overwrites the record sharing rec's id.
func (c *Collection[T]) Replace(ctx context.Context, userID string, rec T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].RecordID() == rec.RecordID() {
			items[i] = rec
			return c.save(ctx, userID, items)
		}
	}
	return fmt.Errorf("%s %q: %w", c.key, rec.RecordID(), ErrNotFound)
}

// Remove deletes the record with the given id.
func (c *Collection[T]) Remove(ctx context.Context, userID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx, userID)
	if err != nil {
		return err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.RecordID() == id {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
	}
	return c.save(ctx, userID, kept)
}

func (c *Collection[T]) load(ctx context.Context, userID string) ([]T, error) {
	raw, err := c.kv.Get(ctx, userID, c.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, userID string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.kv.Set(ctx, userID, c.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}
