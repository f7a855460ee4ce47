package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// KV is an in-process storage.KV. Keys without a stored value fall back to
// seeded defaults, so every new user starts with the seed categories.
type KV struct {
	mu       sync.Mutex
	data     map[string][]byte
	defaults map[string][]byte
}

var _ storage.KV = (*KV)(nil)

func New() *KV {
	return &KV{data: map[string][]byte{}, defaults: map[string][]byte{}}
}

// NewWithCategories returns a store seeded with the given categories.
func NewWithCategories(cats []core.Category) (*KV, error) {
	kv := New()
	raw, err := json.Marshal(cats)
	if err != nil {
		return nil, fmt.Errorf("encode seed categories: %w", err)
	}
	kv.defaults[storage.KeyCategories] = raw
	return kv, nil
}

// NewFromFiles seeds categories from base/seed_categories.txt. Each line is
// "name,color,type"; color and type are optional. Missing files fall back to
// a small default set.
func NewFromFiles(base string) (*KV, error) {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = defaultCategories()
	}
	return NewWithCategories(cats)
}

func (s *KV) Get(_ context.Context, userID, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[slot(userID, key)]; ok {
		return clone(v), nil
	}
	return clone(s.defaults[key]), nil
}

func (s *KV) Set(_ context.Context, userID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[slot(userID, key)] = clone(value)
	return nil
}

// Delete removes the user's value. Seeded defaults are not restored.
func (s *KV) Delete(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[slot(userID, key)] = nil
	return nil
}

func (s *KV) Close() error { return nil }

func slot(userID, key string) string { return userID + "\x00" + key }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func defaultCategories() []core.Category {
	return []core.Category{
		{ID: "seed-1", Name: "Groceries", Color: "emerald", Type: core.Expense, IsActive: true},
		{ID: "seed-2", Name: "Housing", Color: "blue", Type: core.Expense, IsActive: true},
		{ID: "seed-3", Name: "Transport", Color: "amber", Type: core.Expense, IsActive: true},
		{ID: "seed-4", Name: "Salary", Color: "green", Type: core.Income, IsActive: true},
	}
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, ok := parseCategory(line)
		if !ok {
			continue
		}
		if _, dup := seen[strings.ToLower(c.Name)]; dup {
			continue
		}
		seen[strings.ToLower(c.Name)] = struct{}{}
		c.ID = fmt.Sprintf("seed-%d", len(out)+1)
		out = append(out, c)
	}
	return out
}

func parseCategory(line string) (core.Category, bool) {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	c := core.Category{Name: parts[0], Color: core.DefaultColor, Type: core.Expense, IsActive: true}
	if len(parts) > 1 && parts[1] != "" {
		c.Color = core.ColorToken(parts[1])
	}
	if len(parts) > 2 && parts[2] != "" {
		c.Type = core.TransactionType(strings.ToLower(parts[2]))
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, false
	}
	return c, true
}
