package testutil

import (
	"context"
	"testing"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/store"
)

// NewStore creates an in-memory SQLiteStore that is closed when the test ends.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewKeyValue returns a migrated key-value repository on a fresh store.
func NewKeyValue(t *testing.T) *services.SQLiteKeyValueRepository {
	t.Helper()
	kv, err := services.NewSQLiteKeyValueRepository(context.Background(), NewStore(t))
	if err != nil {
		t.Fatalf("testutil.NewKeyValue: %v", err)
	}
	return kv
}
