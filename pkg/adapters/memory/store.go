package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/turnstack/pkg/domain"
)

// Store implements ports.StateStore in memory. Snapshots are copied on the way in and
// on the way out, so it behaves like a serializing backend. Safe for concurrent use.
type Store struct {
	data map[string]*domain.DialogState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.DialogState),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, key string, state *domain.DialogState) error {
	copied := state.Clone()
	if copied == nil {
		copied = domain.NewDialogState()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, key string) (*domain.DialogState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return state.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns stored keys in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
