package ports

import (
	"context"

	"github.com/aretw0/forge/pkg/domain"
)

// SnapshotStore persists the state of instances between ticks.
type SnapshotStore interface {
	// Save persists the snapshot under its instance id.
	Save(ctx context.Context, snapshot *domain.InstanceSnapshot) error

	// Load retrieves the snapshot of an instance.
	// Returns domain.ErrInstanceNotFound if the instance does not exist.
	Load(ctx context.Context, instanceID string) (*domain.InstanceSnapshot, error)

	// Delete removes the snapshot of an instance.
	Delete(ctx context.Context, instanceID string) error

	// List returns the ids of stored instances.
	List(ctx context.Context) ([]string, error)
}
