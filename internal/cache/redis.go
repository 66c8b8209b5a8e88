// Package cache provides a tiny Redis client wrapper for emotion label caching
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

// Cache wraps a Redis client for label storage
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Cache instance connected to the specified Redis address
// If addr is empty, defaults to localhost:6379
func New(addr string, ttl time.Duration) (*Cache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// SetLabel stores a label under key with the cache TTL
func (c *Cache) SetLabel(ctx context.Context, key, label string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache client is nil")
	}

	if err := c.client.Set(ctx, key, label, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set label for %s: %w", key, err)
	}

	return nil
}

// GetLabel retrieves a label; found is false when the key does not exist
func (c *Cache) GetLabel(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, fmt.Errorf("cache client is nil")
	}

	label, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get label for %s: %w", key, err)
	}

	return label, true, nil
}

// TTL returns the expiry applied to stored labels
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}
