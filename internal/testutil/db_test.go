package testutil

import (
	"context"
	"testing"
)

func TestNewTestDBIsMigrated(t *testing.T) {
	db := NewTestDB(t)

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("cannot count migrations: %v", err)
	}
	if n == 0 {
		t.Error("no migrations recorded")
	}
}

func TestNewTestStore(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "forms", "[]"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := store.Get(ctx, "forms")
	if err != nil || !ok || got != "[]" {
		t.Errorf("Get() = %q, %v, %v; want %q, true, nil", got, ok, err, "[]")
	}
}
