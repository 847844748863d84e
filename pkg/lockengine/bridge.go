package lockengine

import (
	"context"
	"errors"
	"time"
)

// Bridge adapts a DatabaseAdapter into a RichAdapter by composing its
// CRUD primitives inside Transaction calls. This is the capability-
// probe shim of spec §4.1: "the only place backend shape leaks."
type Bridge struct {
	db DatabaseAdapter
}

// AsRichAdapter returns adapter unchanged if it already satisfies
// RichAdapter, otherwise wraps it in a Bridge if it satisfies
// DatabaseAdapter. It panics if adapter implements neither — a
// construction-time programming error, not a runtime condition.
func AsRichAdapter(adapter any) RichAdapter {
	if rich, ok := adapter.(RichAdapter); ok {
		return rich
	}

	if db, ok := adapter.(DatabaseAdapter); ok {
		return &Bridge{db: db}
	}

	panic("lockengine: adapter implements neither RichAdapter nor DatabaseAdapter")
}

func (b *Bridge) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	var acquired bool

	err := b.db.Transaction(ctx, func(ctx context.Context) error {
		err := b.db.Insert(ctx, key, owner, expiration)
		if err == nil {
			acquired = true
			return nil
		}

		if !errors.Is(err, ErrKeyExists) {
			return err
		}

		n, err := b.db.UpdateIfExpired(ctx, key, owner, expiration, time.Now())
		if err != nil {
			return err
		}

		acquired = n > 0

		return nil
	})

	return acquired, err
}

func (b *Bridge) Release(ctx context.Context, key, owner string) (bool, error) {
	var removed bool

	err := b.db.Transaction(ctx, func(ctx context.Context) error {
		rec, err := b.db.RemoveIfOwner(ctx, key, owner)
		if err != nil {
			return err
		}
		removed = rec != nil
		return nil
	})

	return removed, err
}

func (b *Bridge) ForceRelease(ctx context.Context, key string) (bool, error) {
	var removed bool

	err := b.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = b.db.Remove(ctx, key)
		return err
	})

	return removed, err
}

func (b *Bridge) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	newExpiration := time.Now().Add(ttl)

	var refreshed bool

	err := b.db.Transaction(ctx, func(ctx context.Context) error {
		n, err := b.db.UpdateExpirationIfOwner(ctx, key, owner, &newExpiration)
		if err != nil {
			return err
		}
		refreshed = n > 0
		return nil
	})

	return refreshed, err
}

func (b *Bridge) GetState(ctx context.Context, key string) (State, error) {
	var state State

	err := b.db.Transaction(ctx, func(ctx context.Context) error {
		rec, err := b.db.Find(ctx, key)
		if err != nil {
			return err
		}

		if rec == nil {
			state = State{Status: Unlocked}
			return nil
		}

		state = State{Status: Owned, Owner: rec.Owner, Expiration: rec.Expiration}

		return nil
	})

	return state, err
}
