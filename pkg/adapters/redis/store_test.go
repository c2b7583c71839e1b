package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/turnstack/pkg/adapters/redis"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	key := "conv-ttl/DialogState"
	state := &domain.DialogState{Stack: []domain.DialogInstance{
		{ID: "main", State: map[string]any{"foo": "bar"}},
	}}

	err := store.Save(ctx, key, state)
	assert.NoError(t, err)

	keys, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, keys, key)

	// Key expiration happens in miniredis time.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Index cleanup is lazy and scored with wall clock time.
	time.Sleep(1200 * time.Millisecond)

	keys, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	key := "my-conv/DialogState"

	err := store.Save(ctx, key, domain.NewDialogState())
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-conv/DialogState"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, key)
}

func TestRedisStore_NestedStateRoundTrip(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	inner := &domain.DialogState{Stack: []domain.DialogInstance{{ID: "greet", State: map[string]any{}}}}
	state := &domain.DialogState{Stack: []domain.DialogInstance{
		{ID: "main", State: map[string]any{domain.KeyDialogs: inner}},
	}}
	require.NoError(t, store.Save(ctx, "nested", state))

	loaded, err := store.Load(ctx, "nested")
	require.NoError(t, err)

	// JSON turns the nested snapshot into a generic map; dialog.DecodeState restores it.
	raw, ok := loaded.Stack[0].State[domain.KeyDialogs].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, raw, "dialogStack")
}
