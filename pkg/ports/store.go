package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// SnapshotStore defines the interface for persisting wizard snapshots.
// This is what lets a half-finished wizard survive a reload.
type SnapshotStore interface {
	// Save persists the snapshot for a given session key, overwriting any previous one.
	Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot for a given session key.
	// Returns domain.ErrSessionNotFound if the key does not exist and an error
	// wrapping domain.ErrSnapshotCorrupt if the stored value cannot be decoded.
	Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error)

	// Delete removes the snapshot. Deleting a missing key is not an error.
	Delete(ctx context.Context, sessionKey string) error

	// List returns the keys of all stored snapshots.
	List(ctx context.Context) ([]string, error)
}
