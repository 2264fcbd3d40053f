package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/spf13/afero"
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint ID: cannot contain path separators")
)

const maxAutoCheckpoints = 5

// CheckpointManager saves and restores named copies of a snapshot slot.
type CheckpointManager struct {
	fs        afero.Fs
	dir       string
	snapshots service.SnapshotStore
	now       func() time.Time
}

// CheckpointMetadata is stored next to each checkpoint payload.
type CheckpointMetadata struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	FileSize    int64     `json:"file_size"`
	Receipts    int       `json:"receipts"`
	IsAuto      bool      `json:"is_auto"`
}

// CheckpointInfo describes a checkpoint for listing.
type CheckpointInfo = CheckpointMetadata

// NewCheckpointManager stores checkpoints of snapshots under dir on fsys.
func NewCheckpointManager(fsys afero.Fs, dir string, snapshots service.SnapshotStore) (*CheckpointManager, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{fs: fsys, dir: dir, snapshots: snapshots, now: time.Now}, nil
}

// Create copies the current snapshot into a checkpoint. An empty tag gets a
// timestamped name.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + cm.now().Format("2006-01-02-150405")
	}
	if err := validateCheckpointID(tag); err != nil {
		return nil, err
	}

	payloadPath, metadataPath := cm.paths(tag)
	if exists, err := afero.Exists(cm.fs, payloadPath); err != nil {
		return nil, fmt.Errorf("failed to access checkpoint: %w", err)
	} else if exists {
		return nil, ErrCheckpointExists
	}

	data, err := cm.snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	count, err := countReceipts(data)
	if err != nil {
		return nil, err
	}

	if err := afero.WriteFile(cm.fs, payloadPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:          tag,
		CreatedAt:   cm.now(),
		Description: description,
		FileSize:    int64(len(data)),
		Receipts:    count,
	}
	if err := cm.saveMetadata(metadataPath, metadata); err != nil {
		if rmErr := cm.fs.Remove(payloadPath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	return &metadata, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := afero.ReadDir(cm.fs, cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		metadata, err := cm.loadMetadata(filepath.Join(cm.dir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		checkpoints = append(checkpoints, *metadata)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Info returns the metadata of one checkpoint.
func (cm *CheckpointManager) Info(_ context.Context, id string) (*CheckpointInfo, error) {
	if err := validateCheckpointID(id); err != nil {
		return nil, err
	}
	_, metadataPath := cm.paths(id)
	metadata, err := cm.loadMetadata(metadataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	return metadata, nil
}

// Restore writes a checkpoint back into the snapshot slot. A readable current
// snapshot is saved as an automatic checkpoint first. Stores that already
// loaded the slot must be initialized again.
func (cm *CheckpointManager) Restore(ctx context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}
	payloadPath, _ := cm.paths(id)

	data, err := afero.ReadFile(cm.fs, payloadPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrCheckpointNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if _, err := countReceipts(data); err != nil {
		return ErrCheckpointCorrupted
	}

	if err := cm.AutoCheckpoint(ctx, "restore"); err != nil && !errors.Is(err, ErrNoSnapshot) {
		slog.Warn("Could not save current receipts before restore", "error", err)
	}

	if err := cm.snapshots.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	slog.Info("Restored checkpoint", "id", id)
	return nil
}

// Delete removes a checkpoint.
func (cm *CheckpointManager) Delete(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}
	payloadPath, metadataPath := cm.paths(id)

	if err := cm.fs.Remove(payloadPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := cm.fs.Remove(metadataPath); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "path", metadataPath)
	}
	return nil
}

// AutoCheckpoint saves the current snapshot under a generated name and keeps
// only the most recent automatic checkpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) error {
	tag := fmt.Sprintf("auto-%s-%s", prefix, cm.now().Format("2006-01-02-150405.000"))
	info, err := cm.Create(ctx, tag, "Automatic checkpoint before "+prefix)
	if err != nil {
		return fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	info.IsAuto = true
	_, metadataPath := cm.paths(tag)
	if err := cm.saveMetadata(metadataPath, *info); err != nil {
		slog.Error("failed to mark auto-checkpoint", "error", err)
	}

	if err := cm.cleanupOldAutoCheckpoints(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}
	return nil
}

func (cm *CheckpointManager) cleanupOldAutoCheckpoints(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}
	autoCount := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoCheckpoints {
			if err := cm.Delete(ctx, cp.ID); err != nil {
				slog.Debug("failed to delete old auto-checkpoint during cleanup", "error", err, "checkpoint", cp.ID)
			}
		}
	}
	return nil
}

func (cm *CheckpointManager) paths(id string) (payload, metadata string) {
	return filepath.Join(cm.dir, id+".json"), filepath.Join(cm.dir, id+".meta.json")
}

func (cm *CheckpointManager) saveMetadata(path string, metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(cm.fs, path, data, 0o600)
}

func (cm *CheckpointManager) loadMetadata(path string) (*CheckpointMetadata, error) {
	data, err := afero.ReadFile(cm.fs, path)
	if err != nil {
		return nil, err
	}
	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, nil
}

func validateCheckpointID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}

// countReceipts checks that data is a JSON array and returns its length.
func countReceipts(data []byte) (int, error) {
	if err := validateSnapshot(data); err != nil {
		return 0, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("%w: not a receipt list", ErrInvalidSnapshot)
	}
	return len(records), nil
}
