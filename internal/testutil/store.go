// Package testutil provides receipt store fixtures for tests.
// Stores are initialized, so they hold the fallback dataset unless a seed
// option says otherwise, and are released when the test ends.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/receipts"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
)

// SetupStore creates an initialized store over an in-memory slot. The slot is
// returned so tests can inject failures or inspect what was persisted.
//
// Example:
//
//	store, slot := testutil.SetupStore(t)
//	slot.FailWith(errors.New("disk full"))
func SetupStore(t *testing.T, opts ...receipts.Option) (*receipts.Store, *storage.MemorySnapshotStore) {
	t.Helper()

	slot := storage.NewMemorySnapshotStore()
	return initialize(t, slot, opts...), slot
}

// SetupSQLiteStore creates an initialized store over a migrated SQLite
// database in the test's temp directory.
func SetupSQLiteStore(t *testing.T, opts ...receipts.Option) (*receipts.Store, *storage.SQLiteSnapshotStore) {
	t.Helper()

	db, err := storage.NewSQLiteSnapshotStore(filepath.Join(t.TempDir(), "receipts.db"), "test-receipts")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return initialize(t, db, opts...), db
}

// WithReceipts seeds an empty slot with the given records instead of the
// fallback dataset.
func WithReceipts(records ...model.Receipt) receipts.Option {
	return receipts.WithSeed(func(time.Time) []model.Receipt {
		out := make([]model.Receipt, len(records))
		copy(out, records)
		return out
	})
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func initialize(t *testing.T, slot service.SnapshotStore, opts ...receipts.Option) *receipts.Store {
	t.Helper()

	store, err := receipts.New(slot, opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	return store
}
