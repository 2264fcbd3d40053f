package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T, slot string) *SQLiteSnapshotStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteSnapshotStore(dbPath, slot)
	require.NoError(t, err, "Failed to create storage")

	require.NoError(t, store.Migrate(context.Background()), "Failed to migrate")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewSQLiteSnapshotStore_Validation(t *testing.T) {
	_, err := NewSQLiteSnapshotStore("", "slot")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = NewSQLiteSnapshotStore(filepath.Join(t.TempDir(), "x.db"), "  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteSnapshotStore_LoadEmptySlot(t *testing.T) {
	store := createTestStorage(t, "receipts")

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	rev, err := store.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rev)
}

func TestSQLiteSnapshotStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t, "receipts")

	require.NoError(t, store.Save(ctx, []byte(`[{"id":"a"}]`)))
	require.NoError(t, store.Save(ctx, []byte(`[{"id":"b"},{"id":"a"}]`)))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b"},{"id":"a"}]`, string(got))

	rev, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rev, "every save bumps the revision")
}

func TestSQLiteSnapshotStore_RejectsInvalidPayload(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t, "receipts")

	assert.ErrorIs(t, store.Save(ctx, nil), ErrInvalidSnapshot)
	assert.ErrorIs(t, store.Save(ctx, []byte("{not json")), ErrInvalidSnapshot)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot, "rejected payloads must not be written")
}

func TestSQLiteSnapshotStore_SlotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	first, err := NewSQLiteSnapshotStore(dbPath, "first")
	require.NoError(t, err)
	require.NoError(t, first.Migrate(ctx))
	require.NoError(t, first.Save(ctx, []byte(`["one"]`)))
	require.NoError(t, first.Close())

	second, err := NewSQLiteSnapshotStore(dbPath, "second")
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Migrate(ctx))

	_, err = second.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Equal(t, "second", second.Slot())
}

func TestSQLiteSnapshotStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewSQLiteSnapshotStore(dbPath, "receipts")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Save(ctx, []byte(`[1,2,3]`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteSnapshotStore(dbPath, "receipts")
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Migrate(ctx), "migrating an up-to-date database is a no-op")

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(got))
}

func TestSQLiteSnapshotStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t, "receipts")

	require.NoError(t, store.Save(ctx, []byte(`[]`)))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSQLiteSnapshotStore_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteSnapshotStore(":memory:", "receipts")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	require.NoError(t, store.Save(ctx, []byte(`{"ok":true}`)))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
}
