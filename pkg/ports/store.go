package ports

import (
	"context"

	"github.com/aretw0/turnstack/pkg/domain"
)

// StateStore defines the interface for persisting dialog stack snapshots.
// Keys are opaque to the store; the state accessor decides how they are built.
type StateStore interface {
	// Save persists the snapshot for a given key.
	Save(ctx context.Context, key string, state *domain.DialogState) error

	// Load retrieves the snapshot for a given key.
	// Returns domain.ErrSessionNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.DialogState, error)

	// Delete removes the snapshot for a given key.
	Delete(ctx context.Context, key string) error

	// List returns all stored keys.
	List(ctx context.Context) ([]string, error)
}
