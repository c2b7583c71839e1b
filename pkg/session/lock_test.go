package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/turnstack/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
)

func (m *Manager) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func TestManager_LocksAreCollected(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		_ = mgr.WithLock(ctx, fmt.Sprintf("conv-%d", i), func(ctx context.Context) error { return nil })
	}
	assert.Zero(t, mgr.lockCount(), "every finished turn releases its lock entry")
}

func TestManager_WaitersShareOneEntry(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	inside := make(chan struct{})
	proceed := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "c1", func(ctx context.Context) error {
			close(inside)
			<-proceed
			return nil
		})
	}()
	<-inside

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "c1", func(ctx context.Context) error { return nil })
		}()
	}

	assert.Eventually(t, func() bool {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		entry, ok := mgr.locks["c1"]
		return ok && entry.refs == 6
	}, time.Second, 5*time.Millisecond, "holder and waiters reference the same entry")
	assert.Equal(t, 1, mgr.lockCount())

	close(proceed)
	wg.Wait()
	assert.Eventually(t, func() bool { return mgr.lockCount() == 0 }, time.Second, 5*time.Millisecond)
}
