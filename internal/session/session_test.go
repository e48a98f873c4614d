package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, got)

	state := NewState("add_product", "title")
	state.Data["title"] = "Гайд"
	require.NoError(t, store.Set(ctx, 100, state))

	got, err = store.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "add_product", got.Flow)
	assert.Equal(t, "title", got.Step)
	assert.Equal(t, "Гайд", got.Data["title"])
}

func TestMemoryStoreSetOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, NewState("add_product", "title")))
	require.NoError(t, store.Set(ctx, 100, NewState("newsletter", "message")))

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "newsletter", got.Flow)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, NewState("add_product", "title")))
	require.NoError(t, store.Delete(ctx, 100))

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 100, NewState("add_product", "title")))
	store.mu.Lock()
	entry := store.entries[100]
	entry.expiresAt = time.Now().Add(-time.Minute)
	store.entries[100] = entry
	store.mu.Unlock()

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := NewState("balance", "username")
	state.Data["username"] = "alice"
	require.NoError(t, store.Set(ctx, 100, state))
	state.Step = "amount"
	state.Data["username"] = "mallory"

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "username", got.Step)
	assert.Equal(t, "alice", got.Data["username"])

	// Мутации карты прочитанного состояния не просачиваются в хранилище,
	// как и в Redis, где без Set ничего не сохраняется.
	got.Data["username"] = "mallory"
	again, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Data["username"])
}
