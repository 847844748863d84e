package memoryadapter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
)

// CacheAdapter is the in-memory cache.RichAdapter.
type CacheAdapter struct {
	mu    sync.Mutex
	state map[string]cache.Entry
}

// NewCacheAdapter builds an empty CacheAdapter.
func NewCacheAdapter() *CacheAdapter {
	return &CacheAdapter{state: make(map[string]cache.Entry)}
}

func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.state[key]
	if !ok || entry.IsExpired(time.Now()) {
		delete(a.state, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	a.state[key] = cache.Entry{Value: value, Expiration: expiration}

	return nil
}

func (a *CacheAdapter) Delete(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, existed := a.state[key]
	delete(a.state, key)

	return existed, nil
}

func (a *CacheAdapter) Increment(ctx context.Context, key string, delta int64, ttl *time.Duration) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.state[key]
	if !ok || entry.IsExpired(time.Now()) {
		var expiration *time.Time
		if ttl != nil {
			t := time.Now().Add(*ttl)
			expiration = &t
		}
		a.state[key] = cache.Entry{Value: []byte(strconv.FormatInt(delta, 10)), Expiration: expiration}
		return delta, nil
	}

	current, err := strconv.ParseInt(string(entry.Value), 10, 64)
	if err != nil {
		return 0, cerrors.NewTypeCacheError(key)
	}

	next := current + delta
	entry.Value = []byte(strconv.FormatInt(next, 10))
	a.state[key] = entry

	return next, nil
}

// RemoveAllExpired sweeps every expired entry.
func (a *CacheAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	removed := 0

	for k, entry := range a.state {
		if entry.IsExpired(now) {
			delete(a.state, k)
			removed++
		}
	}

	return removed, nil
}
