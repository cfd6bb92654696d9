package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(id string) *domain.InstanceSnapshot {
	return &domain.InstanceSnapshot{
		ID:    id,
		Name:  "contract",
		State: domain.StateRunning,
		Tick:  3,
		Blocks: []domain.BlockSnapshot{
			{ID: "block1", TypeID: "example-block-01", State: domain.StateDone, Active: true, Result: "ok", Printable: "Block block1"},
			{ID: "block2", TypeID: "example-block-02", State: domain.StateRunning, Active: true, Printable: "Block block2"},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	instanceID := "contract-test-instance-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := sampleSnapshot(instanceID)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.State, loaded.State)
		assert.Equal(t, snap.Tick, loaded.Tick)
		require.Len(t, loaded.Blocks, 2)
		assert.Equal(t, "ok", loaded.Blocks[0].Result)
		assert.True(t, snap.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := sampleSnapshot(instanceID)
		snap.State = domain.StateDone
		snap.Tick = 9
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateDone, loaded.State)
		assert.Equal(t, 9, loaded.Tick)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleSnapshot(instanceID)))

		err := store.Delete(ctx, instanceID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound, "Load after Delete should return ErrInstanceNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		_ = store.Save(ctx, sampleSnapshot(id1))
		_ = store.Save(ctx, sampleSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
