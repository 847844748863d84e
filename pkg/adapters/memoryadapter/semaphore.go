package memoryadapter

import (
	"context"
	"sync"
	"time"

	"github.com/lerian-oss/coord/pkg/semaphore"
)

// SemaphoreAdapter is the in-memory semaphore.RichAdapter.
type SemaphoreAdapter struct {
	mu    sync.Mutex
	state map[string]semaphore.State
}

// NewSemaphoreAdapter builds an empty SemaphoreAdapter.
func NewSemaphoreAdapter() *SemaphoreAdapter {
	return &SemaphoreAdapter{state: make(map[string]semaphore.State)}
}

func (a *SemaphoreAdapter) effective(key string, now time.Time) (semaphore.State, bool) {
	s, ok := a.state[key]
	if !ok {
		return semaphore.State{}, false
	}
	eff := s.Effective(now)
	if len(eff.Slots) == 0 {
		delete(a.state, key)
		return semaphore.State{}, false
	}
	a.state[key] = eff
	return eff, true
}

func (a *SemaphoreAdapter) Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()

	var expiration *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiration = &t
	}

	current, exists := a.effective(key, now)
	if !exists {
		a.state[key] = semaphore.State{Limit: limit, Slots: []semaphore.Slot{{ID: slotID, Expiration: expiration}}}
		return true, nil
	}

	if current.Limit != limit {
		return false, semaphore.LimitMismatchErr{Established: current.Limit, Requested: limit}
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

	current.Slots = append(current.Slots, semaphore.Slot{ID: slotID, Expiration: expiration})
	a.state[key] = current

	return true, nil
}

func (a *SemaphoreAdapter) Release(ctx context.Context, key, slotID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, exists := a.effective(key, time.Now())
	if !exists {
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

func (a *SemaphoreAdapter) ForceReleaseAll(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, exists := a.state[key]
	delete(a.state, key)

	return exists, nil
}

func (a *SemaphoreAdapter) Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, exists := a.effective(key, time.Now())
	if !exists {
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

func (a *SemaphoreAdapter) GetState(ctx context.Context, key string) (semaphore.State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, exists := a.effective(key, time.Now())
	if !exists {
		return semaphore.State{}, nil
	}

	return current, nil
}
