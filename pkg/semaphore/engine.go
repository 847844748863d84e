package semaphore

import (
	"context"
	"errors"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

// Engine is the backend-agnostic counting-semaphore engine of spec §4.2.
type Engine struct {
	adapter RichAdapter
}

// New builds an Engine over adapter.
func New(adapter RichAdapter) *Engine {
	return &Engine{adapter: adapter}
}

// Acquire returns true iff slotID now holds a slot for key, failing
// with cerrors.LimitMismatchError if key was established with a
// different limit.
func (e *Engine) Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	ok, err := e.adapter.Acquire(ctx, key, slotID, limit, ttl)
	if err != nil {
		var mismatch LimitMismatchErr
		if errors.As(err, &mismatch) {
			return false, cerrors.NewLimitMismatchError(key, mismatch.Established, mismatch.Requested)
		}
		return false, err
	}
	return ok, nil
}

// Release removes slotID's slot for key.
func (e *Engine) Release(ctx context.Context, key, slotID string) (bool, error) {
	return e.adapter.Release(ctx, key, slotID)
}

// ForceReleaseAll removes every slot for key.
func (e *Engine) ForceReleaseAll(ctx context.Context, key string) (bool, error) {
	return e.adapter.ForceReleaseAll(ctx, key)
}

// Refresh sets slotID's expiration to now plus ttl.
func (e *Engine) Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	return e.adapter.Refresh(ctx, key, slotID, ttl)
}

// GetState returns key's current state.
func (e *Engine) GetState(ctx context.Context, key string) (State, error) {
	return e.adapter.GetState(ctx, key)
}
