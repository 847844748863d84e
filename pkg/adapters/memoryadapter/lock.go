// Package memoryadapter implements the in-memory rich adapters for
// every coordination primitive (lock, shared-lock, semaphore, cache).
// It is the reference backend spec §4.1 describes as "natively
// atomic" — every operation runs under a single mutex — and the
// default the conformance suites (pkg/locktest, pkg/sharedlocktest,
// pkg/semaphoretest, pkg/cachetest) exercise first.
package memoryadapter

import (
	"context"
	"sync"
	"time"

	"github.com/lerian-oss/coord/pkg/lockengine"
)

// LockAdapter is the in-memory lockengine.RichAdapter.
type LockAdapter struct {
	mu    sync.Mutex
	state map[string]lockengine.State
}

// NewLockAdapter builds an empty LockAdapter.
func NewLockAdapter() *LockAdapter {
	return &LockAdapter{state: make(map[string]lockengine.State)}
}

func (a *LockAdapter) effective(key string, now time.Time) lockengine.State {
	s, ok := a.state[key]
	if !ok {
		return lockengine.State{Status: lockengine.Unlocked}
	}
	return s.Effective(now)
}

func (a *LockAdapter) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()

	if current := a.effective(key, now); current.Status == lockengine.Owned {
		return false, nil
	}

	var expiration *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiration = &t
	}

	a.state[key] = lockengine.State{Status: lockengine.Owned, Owner: owner, Expiration: expiration}

	return true, nil
}

func (a *LockAdapter) Release(ctx context.Context, key, owner string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Status != lockengine.Owned || current.Owner != owner {
		return false, nil
	}

	delete(a.state, key)

	return true, nil
}

func (a *LockAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, existed := a.state[key]
	delete(a.state, key)

	return existed, nil
}

func (a *LockAdapter) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Status != lockengine.Owned || current.Owner != owner {
		return false, nil
	}

	newExpiration := time.Now().Add(ttl)
	current.Expiration = &newExpiration
	a.state[key] = current

	return true, nil
}

func (a *LockAdapter) GetState(ctx context.Context, key string) (lockengine.State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.state[key]
	if !ok {
		return lockengine.State{Status: lockengine.Unlocked}, nil
	}

	return s, nil
}

// RemoveAllExpired sweeps every expired entry, matching spec §4.1's
// optional Lifecycle hook.
func (a *LockAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	removed := 0

	for k, s := range a.state {
		if s.IsExpired(now) {
			delete(a.state, k)
			removed++
		}
	}

	return removed, nil
}
