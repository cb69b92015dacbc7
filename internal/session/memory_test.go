package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, TokenKey("sess-1"), []byte("tok"), 0))

	got, err := store.Get(ctx, TokenKey("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), got)

	require.NoError(t, store.Delete(ctx, TokenKey("sess-1")))

	_, err = store.Get(ctx, TokenKey("sess-1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TakeOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, HandoffKey("sess-1"), []byte(`{"code":"SAVE10"}`), HandoffTTL))

	got, err := store.TakeOnce(ctx, HandoffKey("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"code":"SAVE10"}`), got)

	// Consumed: a second read must not see stale data.
	_, err = store.TakeOnce(ctx, HandoffKey("sess-1"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, HandoffKey("sess-1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, RememberedEmailKey("sess-1"), []byte("a@b.vn"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, RememberedEmailKey("sess-1"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.TakeOnce(ctx, RememberedEmailKey("sess-1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyBuilders_AreSessionScoped(t *testing.T) {
	assert.NotEqual(t, HandoffKey("a"), HandoffKey("b"))
	assert.NotEqual(t, TokenKey("a"), ProfileKey("a"))
}
