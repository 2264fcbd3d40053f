// Package receipts is the system of record for receipts: it holds the
// collection, persists a full snapshot after every mutation and is the only
// place records are created, changed or removed.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/google/uuid"
)

// Store errors.
var (
	ErrInvalidReceipt = errors.New("invalid receipt")
	ErrNotInitialized = errors.New("receipt store not initialized")
	ErrIDCollision    = errors.New("could not generate a unique receipt id")
)

const maxIDAttempts = 8

// Store holds the receipt collection in canonical order: newest additions
// first, updates and removals never reorder other records.
type Store struct {
	snapshots service.SnapshotStore
	now       func() time.Time
	newID     func() string
	seed      func(time.Time) []model.Receipt
	receipts  []model.Receipt
	mu        sync.RWMutex
	ready     bool
}

var _ service.ReceiptStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the identifier generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithSeed overrides the fallback dataset.
func WithSeed(seed func(time.Time) []model.Receipt) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// New creates a store backed by the given snapshot slot. Call Initialize
// before use.
func New(snapshots service.SnapshotStore, opts ...Option) (*Store, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}

	s := &Store{
		snapshots: snapshots,
		now:       time.Now,
		newID:     uuid.NewString,
		seed:      FallbackReceipts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize loads the persisted snapshot. A missing, malformed or empty
// snapshot is replaced by the fallback dataset, which is persisted at once.
// Malformed content is logged and never returned as an error.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.load(ctx)
	if err != nil {
		return err
	}

	if len(loaded) > 0 {
		s.receipts = loaded
		s.ready = true
		slog.Debug("Loaded receipts", "count", len(loaded))
		return nil
	}

	seeded := cloneAll(s.seed(s.now()))
	if err := s.persist(ctx, seeded); err != nil {
		return err
	}
	s.receipts = seeded
	s.ready = true
	slog.Info("Seeded receipt store with fallback data", "count", len(seeded))
	return nil
}

// load returns the decoded snapshot, or nil when the store should be seeded.
func (s *Store) load(ctx context.Context) ([]model.Receipt, error) {
	data, err := s.snapshots.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var decoded []model.Receipt
	if err := json.Unmarshal(data, &decoded); err != nil {
		common.LogError(fmt.Errorf("%w: %w", common.ErrSnapshotCorrupted, err),
			"Failed to parse stored receipts, using fallback data", common.Fields{"bytes": len(data)})
		return nil, nil
	}
	if err := validateCollection(decoded); err != nil {
		common.LogError(fmt.Errorf("%w: %w", common.ErrSnapshotCorrupted, err),
			"Stored receipts are inconsistent, using fallback data", common.Fields{"receipts": len(decoded)})
		return nil, nil
	}
	return decoded, nil
}

// Add creates a receipt from payload, stamps it with a fresh id and the
// current time, prepends it and persists the collection.
func (s *Store) Add(ctx context.Context, payload model.NewReceipt) (model.Receipt, error) {
	if err := validateAmount(payload.Amount); err != nil {
		return model.Receipt{}, err
	}
	if !payload.Source.IsValid() {
		return model.Receipt{}, fmt.Errorf("%w: unknown source %q", ErrInvalidReceipt, payload.Source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return model.Receipt{}, ErrNotInitialized
	}

	id, err := s.uniqueID()
	if err != nil {
		return model.Receipt{}, err
	}

	created := payload.Materialize(id, s.now())
	next := make([]model.Receipt, 0, len(s.receipts)+1)
	next = append(next, created)
	next = append(next, s.receipts...)

	if err := s.persist(ctx, next); err != nil {
		return model.Receipt{}, err
	}
	s.receipts = next

	slog.Debug("Added receipt",
		"id", created.ID,
		"source", created.Source,
		"category", created.Category,
		"amount", created.Amount)

	return created.Clone(), nil
}

// Update merges the non-nil patch fields into the receipt with the given id.
// An unknown id leaves the collection unchanged.
func (s *Store) Update(ctx context.Context, id string, patch model.ReceiptPatch) error {
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return err
		}
	}
	if patch.Source != nil && !patch.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidReceipt, *patch.Source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotInitialized
	}

	next := make([]model.Receipt, len(s.receipts))
	copy(next, s.receipts)
	if idx := indexOf(next, id); idx >= 0 {
		next[idx] = patch.Apply(next[idx])
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.receipts = next
	return nil
}

// Remove deletes the receipt with the given id. Removal is destructive.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotInitialized
	}

	next := make([]model.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if r.ID != id {
			next = append(next, r)
		}
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.receipts = next
	return nil
}

// List returns a copy of every receipt in canonical order.
func (s *Store) List() []model.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.receipts)
}

// Find returns the receipt with the given id, and false if there is none.
func (s *Store) Find(id string) (model.Receipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := indexOf(s.receipts, id); idx >= 0 {
		return s.receipts[idx].Clone(), true
	}
	return model.Receipt{}, false
}

// persist writes the full collection. Callers hold the write lock and only
// swap in the new collection once the write succeeded, so memory and the
// snapshot never disagree.
func (s *Store) persist(ctx context.Context, receipts []model.Receipt) error {
	if receipts == nil {
		receipts = []model.Receipt{}
	}
	data, err := json.Marshal(receipts)
	if err != nil {
		return fmt.Errorf("failed to encode receipts: %w", err)
	}
	if err := s.snapshots.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist receipts: %w", err)
	}
	return nil
}

func (s *Store) uniqueID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id != "" && indexOf(s.receipts, id) < 0 {
			return id, nil
		}
	}
	return "", ErrIDCollision
}

func indexOf(receipts []model.Receipt, id string) int {
	for i, r := range receipts {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(receipts []model.Receipt) []model.Receipt {
	out := make([]model.Receipt, len(receipts))
	for i, r := range receipts {
		out[i] = r.Clone()
	}
	return out
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidReceipt)
	}
	if amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidReceipt)
	}
	return nil
}

// validateCollection checks the invariants a loaded snapshot must satisfy.
func validateCollection(receipts []model.Receipt) error {
	seen := make(map[string]struct{}, len(receipts))
	for i, r := range receipts {
		if r.ID == "" {
			return fmt.Errorf("receipt at index %d has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate receipt id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		if !r.Source.IsValid() {
			return fmt.Errorf("receipt %q has unknown source %q", r.ID, r.Source)
		}
		if err := validateAmount(r.Amount); err != nil {
			return fmt.Errorf("receipt %q: %w", r.ID, err)
		}
	}
	return nil
}
