// Package redisadapter implements every primitive's RichAdapter
// directly over go-redis (spec §4.1's "rich adapter" shape,
// SPEC_FULL.md §3's Redis backend). The exclusive lock uses the
// SET-NX-then-Lua-compare-and-delete pattern the retrieval pack's
// other_examples/distributed_lock.go demonstrates; the compound
// primitives (shared-lock, semaphore) serialize their already-defined
// State value as a JSON blob and mutate it inside a go-redis
// WATCH/MULTI optimistic transaction, reusing the exact
// state-transition logic pkg/adapters/memoryadapter already
// implements rather than re-deriving it in Lua.
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Client wraps the subset of *redis.Client every adapter in this
// package needs, matching the teacher's mredis.RedisConnection.GetDB
// return type so callers can pass that connection straight through.
type Client interface {
	redis.Cmdable
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

func loadJSON[T any](ctx context.Context, cmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}, key string, zero T) (T, bool, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, err
	}

	return value, true, nil
}
