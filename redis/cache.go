package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a versioned read cache. Consumers key cached values by a version
// counter and invalidate by bumping the counter, never by deleting keys.
// All methods degrade to no-ops when redis is unavailable.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches and unmarshals a cached value. Returns false on miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// GetVersion returns the current version counter for a key, 0 if unset.
func (c *Cache) GetVersion(ctx context.Context, key string) uint64 {
	if c == nil || c.client == nil {
		return 0
	}

	v, err := c.client.Get(ctx, key).Uint64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps a version counter, invalidating every cache entry
// built against the previous version.
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, key)
}
