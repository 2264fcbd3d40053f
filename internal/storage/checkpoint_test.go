package storage

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoReceipts = `[{"id":"a","amount":1},{"id":"b","amount":2}]`

func newTestCheckpoints(t *testing.T, slot *MemorySnapshotStore) (*CheckpointManager, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	cm, err := NewCheckpointManager(fsys, "/data/checkpoints", slot)
	require.NoError(t, err)

	tick := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return cm, fsys
}

func TestCheckpoint_CreateAndList(t *testing.T) {
	ctx := context.Background()
	cm, fsys := newTestCheckpoints(t, NewMemorySnapshotStoreWith([]byte(twoReceipts)))

	info, err := cm.Create(ctx, "before-import", "pre import")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, 2, info.Receipts)
	assert.Equal(t, int64(len(twoReceipts)), info.FileSize)
	assert.False(t, info.IsAuto)

	raw, err := afero.ReadFile(fsys, "/data/checkpoints/before-import.json")
	require.NoError(t, err)
	assert.JSONEq(t, twoReceipts, string(raw))

	second, err := cm.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, second.ID, "checkpoint-2024-05-10")

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	_, err = cm.Create(ctx, "before-import", "")
	assert.ErrorIs(t, err, ErrCheckpointExists)
}

func TestCheckpoint_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	cm, _ := newTestCheckpoints(t, NewMemorySnapshotStoreWith([]byte(twoReceipts)))

	for _, id := range []string{"../escape", "a/b", `a\b`} {
		_, err := cm.Create(ctx, id, "")
		assert.ErrorIs(t, err, ErrInvalidCheckpointID, id)
		assert.ErrorIs(t, cm.Restore(ctx, id), ErrInvalidCheckpointID, id)
		assert.ErrorIs(t, cm.Delete(ctx, id), ErrInvalidCheckpointID, id)
	}
}

func TestCheckpoint_CreateWithoutSnapshot(t *testing.T) {
	cm, _ := newTestCheckpoints(t, NewMemorySnapshotStore())
	_, err := cm.Create(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestCheckpoint_Restore(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySnapshotStoreWith([]byte(twoReceipts))
	cm, _ := newTestCheckpoints(t, slot)

	_, err := cm.Create(ctx, "good", "")
	require.NoError(t, err)

	require.NoError(t, slot.Save(ctx, []byte(`[]`)))
	require.NoError(t, cm.Restore(ctx, "good"))
	assert.JSONEq(t, twoReceipts, string(slot.Raw()))

	list, err := cm.List(ctx)
	require.NoError(t, err)
	var autos int
	for _, cp := range list {
		if cp.IsAuto {
			autos++
			assert.Equal(t, 0, cp.Receipts, "auto checkpoint holds the replaced snapshot")
		}
	}
	assert.Equal(t, 1, autos)

	assert.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpoint_RestoreCorrupted(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySnapshotStoreWith([]byte(twoReceipts))
	cm, fsys := newTestCheckpoints(t, slot)

	require.NoError(t, afero.WriteFile(fsys, "/data/checkpoints/bad.json", []byte("{oops"), 0o600))
	assert.ErrorIs(t, cm.Restore(ctx, "bad"), ErrCheckpointCorrupted)
	assert.JSONEq(t, twoReceipts, string(slot.Raw()), "slot untouched")
}

func TestCheckpoint_RestoreOverCorruptedSlot(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySnapshotStoreWith([]byte(twoReceipts))
	cm, _ := newTestCheckpoints(t, slot)

	_, err := cm.Create(ctx, "good", "")
	require.NoError(t, err)

	slot = NewMemorySnapshotStoreWith([]byte(`{"not":"a list"}`))
	cm.snapshots = slot
	require.NoError(t, cm.Restore(ctx, "good"))
	assert.JSONEq(t, twoReceipts, string(slot.Raw()))
}

func TestCheckpoint_AutoCheckpointRetention(t *testing.T) {
	ctx := context.Background()
	cm, _ := newTestCheckpoints(t, NewMemorySnapshotStoreWith([]byte(twoReceipts)))

	for i := 0; i < maxAutoCheckpoints+3; i++ {
		require.NoError(t, cm.AutoCheckpoint(ctx, "import"))
	}
	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, maxAutoCheckpoints+1, "manual checkpoints are never pruned")
}

func TestCheckpoint_DeleteAndInfo(t *testing.T) {
	ctx := context.Background()
	cm, _ := newTestCheckpoints(t, NewMemorySnapshotStoreWith([]byte(twoReceipts)))

	_, err := cm.Create(ctx, "x", "desc")
	require.NoError(t, err)

	info, err := cm.Info(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "desc", info.Description)

	require.NoError(t, cm.Delete(ctx, "x"))
	assert.ErrorIs(t, cm.Delete(ctx, "x"), ErrCheckpointNotFound)
	_, err = cm.Info(ctx, "x")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}
