package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/receipts"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/spf13/afero"
)

// backend is an opened snapshot slot plus the settings it came from.
type backend struct {
	snapshots service.SnapshotStore
	cfg       *config.StorageConfig
	close     func() error
}

// Close releases the underlying database, if any.
func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend opens the configured snapshot slot, running migrations for
// SQLite databases.
func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendFile:
		snapshots, err := storage.NewFileSnapshotStore(afero.NewOsFs(), filepath.Join(cfg.Path, cfg.Slot+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot file: %w", err)
		}
		return &backend{snapshots: snapshots, cfg: cfg}, nil
	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := storage.NewSQLiteSnapshotStore(cfg.Path, cfg.Slot)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &backend{snapshots: db, cfg: cfg, close: db.Close}, nil
	}
}

// checkpointDir returns where checkpoints of this backend are kept.
func (b *backend) checkpointDir() string {
	if b.cfg.Backend == config.BackendFile {
		return filepath.Join(b.cfg.Path, "checkpoints")
	}
	return filepath.Join(filepath.Dir(b.cfg.Path), "checkpoints")
}

// checkpoints returns a manager for this backend's checkpoints.
func (b *backend) checkpoints() (*storage.CheckpointManager, error) {
	manager, err := storage.NewCheckpointManager(afero.NewOsFs(), b.checkpointDir(), b.snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return manager, nil
}

// initStore opens the backend and loads the receipt collection from it.
func initStore(ctx context.Context) (*receipts.Store, *backend, error) {
	b, err := openBackend(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := receipts.New(b.snapshots)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	return store, b, nil
}
