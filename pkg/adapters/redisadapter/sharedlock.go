package redisadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/redis/go-redis/v9"
)

// SharedLockAdapter is the sharedlock.RichAdapter backed by Redis: the
// whole sharedlock.State for a key is serialized as one JSON blob and
// mutated inside a WATCH/MULTI optimistic transaction, reusing the
// exact state-transition logic memoryadapter.SharedLockAdapter already
// implements against the same sharedlock.State.Effective contract.
type SharedLockAdapter struct {
	client Client
}

// NewSharedLockAdapter builds a SharedLockAdapter over client.
func NewSharedLockAdapter(client Client) *SharedLockAdapter {
	return &SharedLockAdapter{client: client}
}

func (a *SharedLockAdapter) load(ctx context.Context, tx *redis.Tx, key string) (sharedlock.State, error) {
	state, found, err := loadJSON(ctx, tx, key, sharedlock.State{})
	if err != nil {
		return sharedlock.State{}, err
	}
	if !found {
		return sharedlock.State{Mode: sharedlock.None}, nil
	}

	return state.Effective(time.Now()), nil
}

func (a *SharedLockAdapter) store(ctx context.Context, tx *redis.Tx, key string, state sharedlock.State) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if state.Mode == sharedlock.None {
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

func (a *SharedLockAdapter) AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	acquired := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		switch current.Mode {
		case sharedlock.Readers:
			return nil
		case sharedlock.Writer:
			if current.WriterOwner != owner {
				return nil
			}
		}

		var expiration *time.Time
		if ttl != nil {
			t := time.Now().Add(*ttl)
			expiration = &t
		}

		acquired = true

		return a.store(ctx, tx, key, sharedlock.State{Mode: sharedlock.Writer, WriterOwner: owner, WriterExpiration: expiration})
	}, key)

	return acquired, err
}

func (a *SharedLockAdapter) AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	acquired := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode == sharedlock.Writer {
			return nil
		}

		var expiration *time.Time
		if ttl != nil {
			t := time.Now().Add(*ttl)
			expiration = &t
		}

		if current.Mode == sharedlock.None {
			acquired = true
			return a.store(ctx, tx, key, sharedlock.State{
				Mode:  sharedlock.Readers,
				Limit: limit,
				Slots: []sharedlock.Slot{{ID: slotID, Expiration: expiration}},
			})
		}

		if current.Limit != limit {
			return sharedlock.LimitMismatchErr{Established: current.Limit, Requested: limit}
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

		current.Slots = append(current.Slots, sharedlock.Slot{ID: slotID, Expiration: expiration})
		acquired = true

		return a.store(ctx, tx, key, current)
	}, key)

	return acquired, err
}

func (a *SharedLockAdapter) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	released := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode != sharedlock.Writer || current.WriterOwner != owner {
			return nil
		}

		released = true

		return a.store(ctx, tx, key, sharedlock.State{Mode: sharedlock.None})
	}, key)

	return released, err
}

func (a *SharedLockAdapter) ReleaseReader(ctx context.Context, key, slotID string) (bool, error) {
	released := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode != sharedlock.Readers {
			return nil
		}

		found := false
		remaining := make([]sharedlock.Slot, 0, len(current.Slots))
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
		if len(remaining) == 0 {
			current.Mode = sharedlock.None
		}

		return a.store(ctx, tx, key, current)
	}, key)

	return released, err
}

func (a *SharedLockAdapter) ForceReleaseAllReaders(ctx context.Context, key string) (bool, error) {
	released := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode != sharedlock.Readers {
			return nil
		}

		released = true

		return a.store(ctx, tx, key, sharedlock.State{Mode: sharedlock.None})
	}, key)

	return released, err
}

func (a *SharedLockAdapter) RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode != sharedlock.Writer || current.WriterOwner != owner || current.WriterExpiration == nil {
			return nil
		}

		newExpiration := time.Now().Add(ttl)
		current.WriterExpiration = &newExpiration
		refreshed = true

		return a.store(ctx, tx, key, current)
	}, key)

	return refreshed, err
}

func (a *SharedLockAdapter) RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := a.load(ctx, tx, key)
		if err != nil {
			return err
		}

		if current.Mode != sharedlock.Readers {
			return nil
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

func (a *SharedLockAdapter) GetState(ctx context.Context, key string) (sharedlock.State, error) {
	var state sharedlock.State

	err := a.client.Watch(ctx, func(tx *redis.Tx) error {
		loaded, err := a.load(ctx, tx, key)
		state = loaded
		return err
	}, key)

	return state, err
}

var _ sharedlock.RichAdapter = (*SharedLockAdapter)(nil)
