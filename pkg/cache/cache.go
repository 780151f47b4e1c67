package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin best-effort wrapper around Redis. All methods are safe on
// a nil receiver so callers can run without a cache configured; misses and
// Redis failures look the same to them.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis at addr. An empty addr disables caching entirely.
func New(addr string) *Client {
	if addr == "" {
		return nil
	}
	return &Client{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Get returns the cached value for key and whether it was present.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache get %s failed: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Set stores value under key with the given TTL. Failures are logged, never
// surfaced.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

// Delete removes the given keys.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache delete failed: %v", err)
	}
}
