package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// newTestStore returns an initialized store over an in-memory slot.
func newTestStore(t *testing.T, slot *storage.MemorySnapshotStore, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	store, err := New(slot, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func coffeePayload() model.NewReceipt {
	return model.NewReceipt{
		Date:     "2024-05-10",
		Merchant: "Blue Tokai",
		Category: "Food & Dining",
		Method:   "Cash",
		Currency: "INR",
		Source:   model.SourceManual,
		Summary:  "₹180.00 spent at Blue Tokai.",
		Notes:    "flat white",
		Items:    []model.LineItem{{Name: "Flat white", Price: 180}},
		Amount:   180,
	}
}

func decodeSnapshot(t *testing.T, raw []byte) []model.Receipt {
	t.Helper()
	var out []model.Receipt
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNew_RequiresSnapshotStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestStore_InitializeSeedsEmptySlot(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"rct-1001", "rct-1002", "rct-1003"},
		[]string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, fixedNow.Add(-4*day).UnixMilli(), list[0].CreatedAt)

	assert.Equal(t, 1, slot.Saves(), "seed is persisted immediately")
	assert.Equal(t, list, decodeSnapshot(t, slot.Raw()))
}

func TestStore_InitializeFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "malformed json", raw: []byte(`[{"id":`)},
		{name: "empty array", raw: []byte(`[]`)},
		{name: "empty payload", raw: []byte{}},
		{name: "wrong shape", raw: []byte(`{"receipts":[]}`)},
		{name: "duplicate ids", raw: []byte(`[{"id":"a","source":"manual"},{"id":"a","source":"manual"}]`)},
		{name: "unknown source", raw: []byte(`[{"id":"a","source":"scanned"}]`)},
		{name: "negative amount", raw: []byte(`[{"id":"a","source":"manual","amount":-1}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := storage.NewMemorySnapshotStoreWith(tt.raw)
			store := newTestStore(t, slot)

			assert.Equal(t, FallbackReceipts(fixedNow), store.List())
			assert.Equal(t, 1, slot.Saves())
		})
	}
}

func TestStore_InitializeLoadsExistingSnapshot(t *testing.T) {
	stored := []model.Receipt{
		{ID: "b", Merchant: "Second", Source: model.SourceVoice, Amount: 2, CreatedAt: 20},
		{ID: "a", Merchant: "First", Source: model.SourceManual, Amount: 1, CreatedAt: 10},
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	slot := storage.NewMemorySnapshotStoreWith(raw)
	store := newTestStore(t, slot)

	assert.Equal(t, stored, store.List())
	assert.Equal(t, 0, slot.Saves(), "loading a good snapshot does not rewrite it")
}

type failingLoader struct{ storage.MemorySnapshotStore }

func (f *failingLoader) Load(context.Context) ([]byte, error) {
	return nil, errors.New("disk unplugged")
}

func TestStore_InitializeSurfacesTransportErrors(t *testing.T) {
	store, err := New(&failingLoader{})
	require.NoError(t, err)

	err = store.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk unplugged")
}

func TestStore_AddThenFind(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot, WithIDGenerator(func() string { return "fixed-id" }))

	payload := coffeePayload()
	created, err := store.Add(context.Background(), payload)
	require.NoError(t, err)

	want := payload.Materialize("fixed-id", fixedNow)
	assert.Equal(t, want, created)

	found, ok := store.Find("fixed-id")
	require.True(t, ok)
	assert.Equal(t, want, found)

	assert.Equal(t, "fixed-id", store.List()[0].ID, "new receipts go first")
	assert.Equal(t, store.List(), decodeSnapshot(t, slot.Raw()))
}

func TestStore_AddGeneratesDistinctIDs(t *testing.T) {
	store := newTestStore(t, storage.NewMemorySnapshotStore())
	ctx := context.Background()

	seen := map[string]bool{}
	for _, r := range store.List() {
		seen[r.ID] = true
	}
	for i := 0; i < 50; i++ {
		r, err := store.Add(ctx, coffeePayload())
		require.NoError(t, err)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
	assert.Len(t, store.List(), 53)
}

func TestStore_AddNewestFirst(t *testing.T) {
	clock := fixedNow
	store := newTestStore(t, storage.NewMemorySnapshotStore(),
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}))
	ctx := context.Background()

	first, err := store.Add(ctx, coffeePayload())
	require.NoError(t, err)
	second, err := store.Add(ctx, coffeePayload())
	require.NoError(t, err)

	list := store.List()
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Greater(t, list[0].CreatedAt, list[1].CreatedAt)
}

func TestStore_AddRejectsInvalidPayloads(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)
	ctx := context.Background()

	bad := []model.NewReceipt{
		{Source: model.SourceManual, Amount: -0.01},
		{Source: model.SourceManual, Amount: math.NaN()},
		{Source: model.SourceManual, Amount: math.Inf(1)},
		{Source: "fax", Amount: 1},
	}
	for i, p := range bad {
		_, err := store.Add(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidReceipt, "payload %d", i)
	}
	assert.Len(t, store.List(), 3)
	assert.Equal(t, 1, slot.Saves())

	r, err := store.Add(ctx, model.NewReceipt{Source: model.SourceVoice, Amount: 0})
	require.NoError(t, err, "zero amounts are allowed")
	assert.Zero(t, r.Amount)
}

func TestStore_AddRetriesColliding(t *testing.T) {
	ids := []string{"rct-1001", "", "fresh"}
	store := newTestStore(t, storage.NewMemorySnapshotStore(), WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	r, err := store.Add(context.Background(), coffeePayload())
	require.NoError(t, err)
	assert.Equal(t, "fresh", r.ID)

	stuck := newTestStore(t, storage.NewMemorySnapshotStore(), WithIDGenerator(func() string { return "rct-1002" }))
	_, err = stuck.Add(context.Background(), coffeePayload())
	assert.ErrorIs(t, err, ErrIDCollision)
}

func TestStore_UpdateChangesOnlyPatchedField(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)
	ctx := context.Background()

	before := store.List()
	merchant := "Fresh Farm Organic"
	require.NoError(t, store.Update(ctx, "rct-1001", model.ReceiptPatch{Merchant: &merchant}))

	after := store.List()
	require.Len(t, after, len(before))
	assert.Equal(t, merchant, after[0].Merchant)

	after[0].Merchant = before[0].Merchant
	assert.Equal(t, before, after, "everything else is untouched and order is kept")
	assert.Equal(t, store.List(), decodeSnapshot(t, slot.Raw()))
}

func TestStore_UpdateMultipleFields(t *testing.T) {
	store := newTestStore(t, storage.NewMemorySnapshotStore())
	ctx := context.Background()

	amount := 60.0
	category := "Fuel"
	items := []model.LineItem{{Name: "Petrol", Price: 60}}
	require.NoError(t, store.Update(ctx, "rct-1002", model.ReceiptPatch{
		Amount:   &amount,
		Category: &category,
		Items:    &items,
	}))

	got, ok := store.Find("rct-1002")
	require.True(t, ok)
	assert.Equal(t, 60.0, got.Amount)
	assert.Equal(t, "Fuel", got.Category)
	assert.Equal(t, items, got.Items)
	assert.Equal(t, "Metro Fuel", got.Merchant)
}

func TestStore_UpdateUnknownIDIsNoop(t *testing.T) {
	snapshots := storage.NewMemorySnapshotStore()
	store := newTestStore(t, snapshots)
	before := store.List()
	saves := snapshots.Saves()

	merchant := "ghost"
	require.NoError(t, store.Update(context.Background(), "missing", model.ReceiptPatch{Merchant: &merchant}))
	assert.Equal(t, before, store.List())
	assert.Equal(t, saves+1, snapshots.Saves(), "the unchanged collection is still written")
}

func TestStore_UpdateValidates(t *testing.T) {
	store := newTestStore(t, storage.NewMemorySnapshotStore())
	ctx := context.Background()

	negative := -5.0
	assert.ErrorIs(t, store.Update(ctx, "rct-1001", model.ReceiptPatch{Amount: &negative}), ErrInvalidReceipt)

	src := model.Source("carrier pigeon")
	assert.ErrorIs(t, store.Update(ctx, "rct-1001", model.ReceiptPatch{Source: &src}), ErrInvalidReceipt)

	got, _ := store.Find("rct-1001")
	assert.Equal(t, 124.55, got.Amount)
}

func TestStore_Remove(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)
	ctx := context.Background()

	require.NoError(t, store.Remove(ctx, "rct-1002"))
	_, ok := store.Find("rct-1002")
	assert.False(t, ok)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "rct-1001", list[0].ID)
	assert.Equal(t, "rct-1003", list[1].ID)
	assert.Equal(t, list, decodeSnapshot(t, slot.Raw()))

	require.NoError(t, store.Remove(ctx, "rct-1002"), "removing twice is a no-op")
	assert.Equal(t, list, store.List())
}

func TestStore_RemoveAllPersistsEmptyArray(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)
	ctx := context.Background()

	for _, r := range store.List() {
		require.NoError(t, store.Remove(ctx, r.ID))
	}
	assert.Empty(t, store.List())
	assert.Equal(t, "[]", string(slot.Raw()))

	reloaded := newTestStore(t, slot)
	assert.Len(t, reloaded.List(), 3, "an empty snapshot reseeds on the next start")
}

func TestStore_PersistFailureRollsBack(t *testing.T) {
	slot := storage.NewMemorySnapshotStore()
	store := newTestStore(t, slot)
	ctx := context.Background()
	before := store.List()

	slot.FailWith(errors.New("disk full"))

	_, err := store.Add(ctx, coffeePayload())
	assert.ErrorContains(t, err, "disk full")

	merchant := "x"
	assert.Error(t, store.Update(ctx, "rct-1001", model.ReceiptPatch{Merchant: &merchant}))
	assert.Error(t, store.Remove(ctx, "rct-1001"))

	assert.Equal(t, before, store.List(), "memory must still match the last good snapshot")
	assert.Equal(t, before, decodeSnapshot(t, slot.Raw()))
}

func TestStore_NotInitialized(t *testing.T) {
	store, err := New(storage.NewMemorySnapshotStore())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Add(ctx, coffeePayload())
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, store.Update(ctx, "x", model.ReceiptPatch{}), ErrNotInitialized)
	assert.ErrorIs(t, store.Remove(ctx, "x"), ErrNotInitialized)
	assert.Empty(t, store.List())
}

func TestStore_ListReturnsCopies(t *testing.T) {
	store := newTestStore(t, storage.NewMemorySnapshotStore())

	list := store.List()
	list[0].Merchant = "mutated"
	list[0].Items[0].Name = "mutated"

	fresh, _ := store.Find("rct-1001")
	assert.Equal(t, "Fresh Farm Grocers", fresh.Merchant)
	assert.Equal(t, "Organic produce bundle", fresh.Items[0].Name)
}

func TestStore_RoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := t.TempDir() + "/receipts.db"

	open := func() (*storage.SQLiteSnapshotStore, *Store) {
		slot, err := storage.NewSQLiteSnapshotStore(dbPath, "agentic-finance-receipts")
		require.NoError(t, err)
		require.NoError(t, slot.Migrate(ctx))
		store, err := New(slot, WithClock(fixedClock))
		require.NoError(t, err)
		require.NoError(t, store.Initialize(ctx))
		return slot, store
	}

	slot, store := open()
	_, err := store.Add(ctx, coffeePayload())
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "rct-1003"))
	want := store.List()

	rev, err := slot.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rev, "seed, add and remove each write one snapshot")
	require.NoError(t, slot.Close())

	slot, reloaded := open()
	defer slot.Close()
	assert.Equal(t, want, reloaded.List())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	store := newTestStore(t, storage.NewMemorySnapshotStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := coffeePayload()
			p.Notes = fmt.Sprintf("writer %d", i)
			_, err := store.Add(ctx, p)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list := store.List()
	assert.Len(t, list, 23)
	ids := map[string]struct{}{}
	for _, r := range list {
		ids[r.ID] = struct{}{}
	}
	assert.Len(t, ids, 23)
}
