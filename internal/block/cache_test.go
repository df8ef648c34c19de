package block

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	blocked map[string]bool
	calls   int
	err     error
}

func (f *fakeStore) IsBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[cacheKey(userA, userB)], nil
}

func newTestCache(t *testing.T, store Store, ttl time.Duration) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedStore(store, client, ttl), mr
}

func TestCachedStoreHitsSourceOnce(t *testing.T) {
	store := &fakeStore{blocked: map[string]bool{cacheKey(1, 2): true}}
	cache, _ := newTestCache(t, store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		blocked, err := cache.IsBlocked(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, blocked)
	}

	assert.Equal(t, 1, store.calls)
}

func TestCachedStoreCachesNegatives(t *testing.T) {
	store := &fakeStore{blocked: map[string]bool{}}
	cache, _ := newTestCache(t, store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blocked, err := cache.IsBlocked(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, blocked)
	}

	assert.Equal(t, 1, store.calls)
}

func TestCachedStoreOrderIndependent(t *testing.T) {
	store := &fakeStore{blocked: map[string]bool{cacheKey(1, 2): true}}
	cache, _ := newTestCache(t, store, time.Minute)
	ctx := context.Background()

	blocked, err := cache.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, blocked)

	// Reversed order hits the same cache entry.
	blocked, err = cache.IsBlocked(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 1, store.calls)
}

func TestCachedStoreExpiry(t *testing.T) {
	store := &fakeStore{blocked: map[string]bool{}}
	cache, mr := newTestCache(t, store, time.Minute)
	ctx := context.Background()

	_, err := cache.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestCachedStoreNeverMasksStoreErrors(t *testing.T) {
	wantErr := errors.New("db down")
	store := &fakeStore{err: wantErr}
	cache, _ := newTestCache(t, store, time.Minute)

	_, err := cache.IsBlocked(context.Background(), 1, 2)
	assert.ErrorIs(t, err, wantErr)
}

func TestCachedStoreNilClientFallsThrough(t *testing.T) {
	store := &fakeStore{blocked: map[string]bool{cacheKey(1, 2): true}}
	cache := NewCachedStore(store, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		blocked, err := cache.IsBlocked(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, blocked)
	}

	// Every call reaches the source without a cache.
	assert.Equal(t, 2, store.calls)
}
