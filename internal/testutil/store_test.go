package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/receipts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupStore_SeedsFallbackData(t *testing.T) {
	store, slot := SetupStore(t)
	assert.Len(t, store.List(), 3)
	assert.Equal(t, 1, slot.Saves(), "seed is persisted on initialize")
}

func TestSetupStore_WithReceipts(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seed := model.Receipt{ID: "r-1", Merchant: "Corner Cafe", Source: model.SourceManual, Amount: 80}

	store, _ := SetupStore(t, WithReceipts(seed), receipts.WithClock(FixedClock(at)))
	require.Len(t, store.List(), 1)

	added, err := store.Add(context.Background(), model.NewReceipt{Merchant: "Bakery", Source: model.SourceManual, Amount: 12})
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), added.CreatedAt)
}

func TestSetupSQLiteStore_Persists(t *testing.T) {
	store, db := SetupSQLiteStore(t)

	_, err := store.Add(context.Background(), model.NewReceipt{Merchant: "Bakery", Source: model.SourceManual, Amount: 12})
	require.NoError(t, err)

	reloaded, err := receipts.New(db)
	require.NoError(t, err)
	require.NoError(t, reloaded.Initialize(context.Background()))
	assert.Equal(t, store.List(), reloaded.List())
}
