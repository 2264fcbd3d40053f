// Package service defines the ports shared between the receipt store, its
// producers and the persistence adapters.
package service

import (
	"context"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// SnapshotStore is the persistence boundary: one named slot holding the
// JSON-encoded receipt collection. Load returns storage.ErrNoSnapshot when the
// slot has never been written.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, snapshot []byte) error
}

// ReceiptWriter is the creation side of the store used by producers such as
// capture sessions, the voice assistant and statement imports.
type ReceiptWriter interface {
	Add(ctx context.Context, payload model.NewReceipt) (model.Receipt, error)
}

// ReceiptReader is the read-only projection exposed to presentation layers.
type ReceiptReader interface {
	List() []model.Receipt
	Find(id string) (model.Receipt, bool)
}

// ReceiptStore is the full read/write contract.
type ReceiptStore interface {
	ReceiptReader
	ReceiptWriter
	Update(ctx context.Context, id string, patch model.ReceiptPatch) error
	Remove(ctx context.Context, id string) error
}
