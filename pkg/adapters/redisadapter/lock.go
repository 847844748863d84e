package redisadapter

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes key only if its value still matches the
// caller's owner, the compare-and-delete idiom grounded on
// other_examples/distributed_lock.go's cleanup script.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// refreshScript extends key's TTL only if its value still matches owner.
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	redis.call("pexpire", KEYS[1], ARGV[2])
	return 1
else
	return 0
end
`)

// LockAdapter is the lockengine.RichAdapter backed by Redis: the
// key's value is the owner string, and TTL is Redis's own key
// expiration, so an expired lock simply no longer exists.
type LockAdapter struct {
	client Client
}

// NewLockAdapter builds a LockAdapter over client.
func NewLockAdapter(client Client) *LockAdapter {
	return &LockAdapter{client: client}
}

func (a *LockAdapter) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	var expiration time.Duration
	if ttl != nil {
		expiration = *ttl
	}

	ok, err := a.client.SetNX(ctx, key, owner, expiration).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (a *LockAdapter) Release(ctx context.Context, key, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, a.client, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (a *LockAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (a *LockAdapter) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, a.client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (a *LockAdapter) GetState(ctx context.Context, key string) (lockengine.State, error) {
	owner, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return lockengine.State{Status: lockengine.Unlocked}, nil
	}
	if err != nil {
		return lockengine.State{}, err
	}

	state := lockengine.State{Status: lockengine.Owned, Owner: owner}

	ttl, err := a.client.PTTL(ctx, key).Result()
	if err != nil {
		return lockengine.State{}, err
	}

	if ttl > 0 {
		exp := time.Now().Add(ttl)
		state.Expiration = &exp
	}

	return state, nil
}

var _ lockengine.RichAdapter = (*LockAdapter)(nil)
