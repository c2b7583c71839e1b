package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/ports"
)

// MockStore is an in-memory implementation of StateStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.DialogState
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.DialogState),
	}
}

func (m *MockStore) Save(ctx context.Context, key string, state *domain.DialogState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = state.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, key string) (*domain.DialogState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, NewMockStore())
}
