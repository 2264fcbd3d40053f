package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/mattn/go-sqlite3"
)

// SQLiteSnapshotStore keeps one named snapshot slot in a SQLite database.
type SQLiteSnapshotStore struct {
	db     *sql.DB
	dbPath string
	slot   string
	retry  common.RetryOptions
}

// NewSQLiteSnapshotStore opens (creating if needed) the database at dbPath and
// binds the store to the given slot. Use ":memory:" for an ephemeral database.
func NewSQLiteSnapshotStore(dbPath, slot string) (*SQLiteSnapshotStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}
	if err := validateString(slot, "slot"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteSnapshotStore{
		db:     db,
		dbPath: dbPath,
		slot:   slot,
		retry:  common.DefaultRetryOptions(),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

// Slot returns the name of the slot this store reads and writes.
func (s *SQLiteSnapshotStore) Slot() string {
	return s.slot
}

// Load returns the stored snapshot, or ErrNoSnapshot if the slot is empty.
func (s *SQLiteSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE slot = ?`, s.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", s.slot, err)
	}

	return []byte(payload), nil
}

// Save replaces the slot contents with snapshot in a single statement, so a
// reader never observes a partially written collection.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, snapshot []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	err := common.WithRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO snapshots (slot, payload, revision, updated_at)
			VALUES (?, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(slot) DO UPDATE SET
				payload = excluded.payload,
				revision = snapshots.revision + 1,
				updated_at = CURRENT_TIMESTAMP
		`, s.slot, string(snapshot))
		return classifySQLiteError(execErr)
	}, s.retry)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", s.slot, err)
	}

	slog.Debug("Saved snapshot", "slot", s.slot, "bytes", len(snapshot))
	return nil
}

// Revision returns how many times the slot has been written; zero if never.
func (s *SQLiteSnapshotStore) Revision(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var revision int
	err := s.db.QueryRowContext(ctx,
		`SELECT revision FROM snapshots WHERE slot = ?`, s.slot).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot revision: %w", err)
	}
	return revision, nil
}

// Clear deletes the slot so the next Load reports ErrNoSnapshot.
func (s *SQLiteSnapshotStore) Clear(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE slot = ?`, s.slot); err != nil {
		return fmt.Errorf("failed to clear snapshot %q: %w", s.slot, err)
	}
	return nil
}

// classifySQLiteError marks lock contention as retryable.
func classifySQLiteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", common.ErrStorageBusy, err)
	}
	return err
}
