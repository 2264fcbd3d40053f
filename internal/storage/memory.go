package storage

import (
	"context"
	"sync"
)

// MemorySnapshotStore is an in-process snapshot slot, used by tests and
// dry runs.
type MemorySnapshotStore struct {
	err   error
	data  []byte
	saves int
	mu    sync.Mutex
}

// NewMemorySnapshotStore returns an empty slot.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// NewMemorySnapshotStoreWith returns a slot preloaded with raw content,
// which need not be valid JSON.
func NewMemorySnapshotStoreWith(raw []byte) *MemorySnapshotStore {
	data := make([]byte, len(raw))
	copy(data, raw)
	return &MemorySnapshotStore{data: data}
}

// Load returns a copy of the stored payload.
func (m *MemorySnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Save replaces the payload, or fails with the error set by FailWith.
func (m *MemorySnapshotStore) Save(ctx context.Context, snapshot []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	m.data = make([]byte, len(snapshot))
	copy(m.data, snapshot)
	m.saves++
	return nil
}

// FailWith makes every subsequent Save return err. Pass nil to recover.
func (m *MemorySnapshotStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves reports how many successful writes have happened.
func (m *MemorySnapshotStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns the stored payload without validation.
func (m *MemorySnapshotStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
