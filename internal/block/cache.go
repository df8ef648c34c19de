package block

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CachedStore fronts a Store with a short-TTL Redis cache. Staleness inside
// the TTL window is an accepted trade-off; store errors are never masked by
// the cache so feed building can fail closed.
type CachedStore struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps store with a Redis cache. A nil client disables caching.
func NewCachedStore(store Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{store: store, client: client, ttl: ttl}
}

func (c *CachedStore) IsBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	if c.client == nil {
		return c.store.IsBlocked(ctx, userA, userB)
	}

	key := cacheKey(userA, userB)
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return cached == "1", nil
	}
	// Any cache failure falls through to the source of truth.

	blocked, err := c.store.IsBlocked(ctx, userA, userB)
	if err != nil {
		return false, err
	}

	value := "0"
	if blocked {
		value = "1"
	}
	c.client.Set(ctx, key, value, c.ttl)

	return blocked, nil
}

// cacheKey is order-independent since blocking is checked bidirectionally.
func cacheKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("block:%d:%d", userA, userB)
}
