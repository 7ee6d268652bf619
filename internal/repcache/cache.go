// Package repcache maintains the latest known reputations per artifact in
// Redis, so other tooling can look up current trust state without replaying
// the event stream.
package repcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/tie-bridge/tie"
)

const keyPrefix = "tie:rep:"

// Entry is the cached state for a single artifact.
type Entry struct {
	Hashes      map[string]string         `json:"hashes,omitempty"`
	Reputations map[string]tie.Reputation `json:"reputations,omitempty"`
	UpdateTime  int64                     `json:"update_time"`
}

// Cache is a Redis-backed latest-reputation cache keyed by the artifact's
// primary digest.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at redisURL and returns a Cache whose entries
// expire after ttl.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Put stores the entry under the artifact digest, replacing any previous
// state.
func (c *Cache) Put(ctx context.Context, digest string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+digest, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Get returns the cached entry for the digest, or nil if none exists.
func (c *Cache) Get(ctx context.Context, digest string) (*Entry, error) {
	data, err := c.client.Get(ctx, keyPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
