package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestKVSetGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := New()

	if v, err := kv.Get(ctx, "u", "k"); v != nil || err != nil {
		t.Fatalf("expected nil for missing key, got %q err=%v", v, err)
	}

	buf := []byte("abc")
	_ = kv.Set(ctx, "u", "k", buf)
	buf[0] = 'z'
	v, _ := kv.Get(ctx, "u", "k")
	if string(v) != "abc" {
		t.Fatalf("stored value must be copied, got %q", v)
	}

	_ = kv.Delete(ctx, "u", "k")
	if v, _ := kv.Get(ctx, "u", "k"); v != nil {
		t.Fatalf("expected nil after delete, got %q", v)
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cats, _ := storage.NewCollection[core.Category](kv, storage.KeyCategories).All(ctx, "anyone")
	if len(cats) == 0 {
		t.Fatalf("expected default categories when file is missing")
	}

	content := "# name,color,type\nFood,emerald,expense\nSalary,,income\nfood,red\nBroken,blue,transfer\n\nRent\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	kv, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seeded: %v", err)
	}
	coll := storage.NewCollection[core.Category](kv, storage.KeyCategories)
	cats, _ = coll.All(ctx, "u1")

	want := []core.Category{
		{ID: "seed-1", Name: "Food", Color: "emerald", Type: core.Expense, IsActive: true},
		{ID: "seed-2", Name: "Salary", Color: core.DefaultColor, Type: core.Income, IsActive: true},
		{ID: "seed-3", Name: "Rent", Color: core.DefaultColor, Type: core.Expense, IsActive: true},
	}
	if len(cats) != len(want) {
		t.Fatalf("expected %d categories, got %+v", len(want), cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("category %d: got %+v, want %+v", i, cats[i], want[i])
		}
	}

	// A user's own categories replace the seed for that user only.
	if _, err := coll.Append(ctx, "u1", core.Category{Name: "Pets", Type: core.Expense}); err != nil {
		t.Fatalf("append: %v", err)
	}
	mine, _ := coll.All(ctx, "u1")
	theirs, _ := coll.All(ctx, "u2")
	if len(mine) != 4 || len(theirs) != 3 {
		t.Fatalf("unexpected per-user categories: mine=%d theirs=%d", len(mine), len(theirs))
	}
}
