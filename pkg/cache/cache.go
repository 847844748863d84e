// Package cache implements the cache contract of spec §3/§4.1: a
// key-scoped value store with optional expiration and numeric
// increment/decrement support.
package cache

import (
	"context"
	"time"
)

// Entry is the per-key cache state (spec §3 CacheEntry).
type Entry struct {
	Value      []byte
	Expiration *time.Time
}

// IsExpired reports whether e has a non-nil Expiration at or before now.
func (e Entry) IsExpired(now time.Time) bool {
	return e.Expiration != nil && !e.Expiration.After(now)
}

// RichAdapter exposes cache operations as atomic single calls (spec
// §4.1's "rich adapter").
type RichAdapter interface {
	// Get returns the stored value and true, or false if key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with an optional expiration.
	Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error
	// Delete removes key, reporting whether anything was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// Increment adds delta to the numeric value stored at key
	// (creating it at delta if absent), returning the new value.
	// Fails with cerrors.TypeCacheError if the stored value is not
	// numeric.
	Increment(ctx context.Context, key string, delta int64, ttl *time.Duration) (int64, error)
}

// Lifecycle is implemented by adapters that need setup/teardown
// (spec §4.1's init/deInit/removeAllExpired hooks). Optional: providers
// probe for it and skip the hooks if absent.
type Lifecycle interface {
	Init(ctx context.Context) error
	DeInit(ctx context.Context) error
	RemoveAllExpired(ctx context.Context) (int, error)
}

// Cache is the ergonomic handle a Provider hands out (spec §4.5),
// wrapping a RichAdapter with a fixed key.
type Cache struct {
	adapter RichAdapter
	key     string
}

// New builds a Cache handle bound to key over adapter.
func New(adapter RichAdapter, key string) *Cache {
	return &Cache{adapter: adapter, key: key}
}

func (c *Cache) Get(ctx context.Context) ([]byte, bool, error) {
	return c.adapter.Get(ctx, c.key)
}

func (c *Cache) Set(ctx context.Context, value []byte, ttl *time.Duration) error {
	return c.adapter.Set(ctx, c.key, value, ttl)
}

func (c *Cache) Delete(ctx context.Context) (bool, error) {
	return c.adapter.Delete(ctx, c.key)
}

func (c *Cache) Increment(ctx context.Context, delta int64, ttl *time.Duration) (int64, error) {
	return c.adapter.Increment(ctx, c.key, delta, ttl)
}

// Decrement is Increment(-delta).
func (c *Cache) Decrement(ctx context.Context, delta int64, ttl *time.Duration) (int64, error) {
	return c.adapter.Increment(ctx, c.key, -delta, ttl)
}
