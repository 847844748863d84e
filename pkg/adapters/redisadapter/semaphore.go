package redisadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/redis/go-redis/v9"
)

// SemaphoreAdapter is the semaphore.RichAdapter backed by Redis,
// mirroring SharedLockAdapter's JSON-blob-under-WATCH approach against
// semaphore.State.Effective.
type SemaphoreAdapter struct {
	client Client
}

// NewSemaphoreAdapter builds a SemaphoreAdapter over client.
func NewSemaphoreAdapter(client Client) *SemaphoreAdapter {
	return &SemaphoreAdapter{client: client}
}

func (a *SemaphoreAdapter) load(ctx context.Context, tx *redis.Tx, key string) (semaphore.State, bool, error) {
	state, found, err := loadJSON(ctx, tx, key, semaphore.State{})
	if err != nil || !found {
		return semaphore.State{}, false, err
	}

	eff := state.Effective(time.Now())
	if len(eff.Slots) == 0 {
		return semaphore.State{}, false, nil
	}

	return eff, true, nil
}

func (a *SemaphoreAdapter) store(ctx context.Context, tx *redis.Tx, key string, state semaphore.State) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(state.Slots) == 0 {
			pipe.Del(ctx, key)
			return nil
		}

		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}

		pipe.Set(ctx, key, raw, 0)

		return nil
	})

	return err
}

func (a *SemaphoreAdapter) Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	acquired := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		var expiration *time.Time
		if ttl != nil {
			t := time.Now().Add(*ttl)
			expiration = &t
		}

		if !exists {
			acquired = true
			return a.store(ctx, tx, key, semaphore.State{Limit: limit, Slots: []semaphore.Slot{{ID: slotID, Expiration: expiration}}})
		}

		if current.Limit != limit {
			return semaphore.LimitMismatchErr{Established: current.Limit, Requested: limit}
		}

		for i, slot := range current.Slots {
			if slot.ID == slotID {
				current.Slots[i].Expiration = expiration
				acquired = true
				return a.store(ctx, tx, key, current)
			}
		}

		if len(current.Slots) >= current.Limit {
			return nil
		}

		current.Slots = append(current.Slots, semaphore.Slot{ID: slotID, Expiration: expiration})
		acquired = true

		return a.store(ctx, tx, key, current)
	}, key)

	return acquired, err
}

func (a *SemaphoreAdapter) Release(ctx context.Context, key, slotID string) (bool, error) {
	released := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := a.load(ctx, tx, key)
		if err != nil || !exists {
			return err
		}

		found := false
		remaining := make([]semaphore.Slot, 0, len(current.Slots))
		for _, slot := range current.Slots {
			if slot.ID == slotID {
				found = true
				continue
			}
			remaining = append(remaining, slot)
		}

		if !found {
			return nil
		}

		released = true
		current.Slots = remaining

		return a.store(ctx, tx, key, current)
	}, key)

	return released, err
}

func (a *SemaphoreAdapter) ForceReleaseAll(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (a *SemaphoreAdapter) Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := a.load(ctx, tx, key)
		if err != nil || !exists {
			return err
		}

		for i, slot := range current.Slots {
			if slot.ID == slotID {
				if slot.Expiration == nil {
					return nil
				}
				newExpiration := time.Now().Add(ttl)
				current.Slots[i].Expiration = &newExpiration
				refreshed = true
				return a.store(ctx, tx, key, current)
			}
		}

		return nil
	}, key)

	return refreshed, err
}

func (a *SemaphoreAdapter) GetState(ctx context.Context, key string) (semaphore.State, error) {
	var state semaphore.State

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		loaded, exists, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if exists {
			state = loaded
		}
		return nil
	}, key)

	return state, err
}

var _ semaphore.RichAdapter = (*SemaphoreAdapter)(nil)
