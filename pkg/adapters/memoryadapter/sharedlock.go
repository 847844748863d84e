package memoryadapter

import (
	"context"
	"sync"
	"time"

	"github.com/lerian-oss/coord/pkg/sharedlock"
)

// SharedLockAdapter is the in-memory sharedlock.RichAdapter.
type SharedLockAdapter struct {
	mu    sync.Mutex
	state map[string]sharedlock.State
}

// NewSharedLockAdapter builds an empty SharedLockAdapter.
func NewSharedLockAdapter() *SharedLockAdapter {
	return &SharedLockAdapter{state: make(map[string]sharedlock.State)}
}

func (a *SharedLockAdapter) effective(key string, now time.Time) sharedlock.State {
	s, ok := a.state[key]
	if !ok {
		return sharedlock.State{Mode: sharedlock.None}
	}
	eff := s.Effective(now)
	if eff.Mode == sharedlock.None {
		delete(a.state, key)
	} else {
		a.state[key] = eff
	}
	return eff
}

func (a *SharedLockAdapter) AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	current := a.effective(key, now)

	switch current.Mode {
	case sharedlock.Readers:
		return false, nil
	case sharedlock.Writer:
		if current.WriterOwner != owner {
			return false, nil
		}
	}

	var expiration *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiration = &t
	}

	a.state[key] = sharedlock.State{Mode: sharedlock.Writer, WriterOwner: owner, WriterExpiration: expiration}

	return true, nil
}

func (a *SharedLockAdapter) AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	current := a.effective(key, now)

	if current.Mode == sharedlock.Writer {
		return false, nil
	}

	var expiration *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiration = &t
	}

	if current.Mode == sharedlock.None {
		a.state[key] = sharedlock.State{
			Mode:  sharedlock.Readers,
			Limit: limit,
			Slots: []sharedlock.Slot{{ID: slotID, Expiration: expiration}},
		}
		return true, nil
	}

	if current.Limit != limit {
		return false, sharedlock.LimitMismatchErr{Established: current.Limit, Requested: limit}
	}

	for i, slot := range current.Slots {
		if slot.ID == slotID {
			current.Slots[i].Expiration = expiration
			a.state[key] = current
			return true, nil
		}
	}

	if len(current.Slots) >= current.Limit {
		return false, nil
	}

	current.Slots = append(current.Slots, sharedlock.Slot{ID: slotID, Expiration: expiration})
	a.state[key] = current

	return true, nil
}

func (a *SharedLockAdapter) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Mode != sharedlock.Writer || current.WriterOwner != owner {
		return false, nil
	}

	delete(a.state, key)

	return true, nil
}

func (a *SharedLockAdapter) ReleaseReader(ctx context.Context, key, slotID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Mode != sharedlock.Readers {
		return false, nil
	}

	found := false
	remaining := current.Slots[:0]
	for _, slot := range current.Slots {
		if slot.ID == slotID {
			found = true
			continue
		}
		remaining = append(remaining, slot)
	}

	if !found {
		return false, nil
	}

	if len(remaining) == 0 {
		delete(a.state, key)
	} else {
		current.Slots = remaining
		a.state[key] = current
	}

	return true, nil
}

func (a *SharedLockAdapter) ForceReleaseAllReaders(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, existed := a.state[key]
	if !existed || current.Mode != sharedlock.Readers {
		return false, nil
	}

	delete(a.state, key)

	return true, nil
}

func (a *SharedLockAdapter) RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Mode != sharedlock.Writer || current.WriterOwner != owner || current.WriterExpiration == nil {
		return false, nil
	}

	newExpiration := time.Now().Add(ttl)
	current.WriterExpiration = &newExpiration
	a.state[key] = current

	return true, nil
}

func (a *SharedLockAdapter) RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.effective(key, time.Now())
	if current.Mode != sharedlock.Readers {
		return false, nil
	}

	for i, slot := range current.Slots {
		if slot.ID == slotID {
			if slot.Expiration == nil {
				return false, nil
			}
			newExpiration := time.Now().Add(ttl)
			current.Slots[i].Expiration = &newExpiration
			a.state[key] = current
			return true, nil
		}
	}

	return false, nil
}

func (a *SharedLockAdapter) GetState(ctx context.Context, key string) (sharedlock.State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.effective(key, time.Now()), nil
}
