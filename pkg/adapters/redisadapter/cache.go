package redisadapter

import (
	"context"
	"strings"
	"time"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/redis/go-redis/v9"
)

// incrementScript creates key at delta (honoring an optional TTL) if
// absent, otherwise atomically adds delta to the existing numeric
// value, rejecting a non-numeric stored value without torching it.
var incrementScript = redis.NewScript(`
local exists = redis.call("exists", KEYS[1])
if exists == 0 then
	local v = tonumber(ARGV[1])
	redis.call("set", KEYS[1], v)
	if tonumber(ARGV[2]) > 0 then
		redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return v
end

local current = redis.call("get", KEYS[1])
if tonumber(current) == nil then
	return redis.error_reply("not-numeric")
end

return redis.call("incrby", KEYS[1], ARGV[1])
`)

// CacheAdapter is the cache.RichAdapter backed by Redis.
type CacheAdapter struct {
	client Client
}

// NewCacheAdapter builds a CacheAdapter over client.
func NewCacheAdapter(client Client) *CacheAdapter {
	return &CacheAdapter{client: client}
}

func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := a.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return raw, true, nil
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	var expiration time.Duration
	if ttl != nil {
		expiration = *ttl
	}

	return a.client.Set(ctx, key, value, expiration).Err()
}

func (a *CacheAdapter) Delete(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (a *CacheAdapter) Increment(ctx context.Context, key string, delta int64, ttl *time.Duration) (int64, error) {
	var ttlMs int64
	if ttl != nil {
		ttlMs = ttl.Milliseconds()
	}

	v, err := incrementScript.Run(ctx, a.client, []string{key}, delta, ttlMs).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "not-numeric") {
			return 0, cerrors.NewTypeCacheError(key)
		}
		return 0, err
	}

	return v, nil
}

var _ cache.RichAdapter = (*CacheAdapter)(nil)
