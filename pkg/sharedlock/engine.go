package sharedlock

import (
	"context"
	"errors"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

// Engine is the backend-agnostic reader/writer engine of spec §4.2.
type Engine struct {
	adapter RichAdapter
}

// New builds an Engine over adapter.
func New(adapter RichAdapter) *Engine {
	return &Engine{adapter: adapter}
}

// AcquireWriter returns true iff owner now holds the exclusive writer
// slot for key.
func (e *Engine) AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	return e.adapter.AcquireWriter(ctx, key, owner, ttl)
}

// AcquireReader returns true iff slotID now holds a reader slot for
// key, failing with cerrors.LimitMismatchError if key was established
// with a different limit.
func (e *Engine) AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	ok, err := e.adapter.AcquireReader(ctx, key, slotID, limit, ttl)
	if err != nil {
		var mismatch LimitMismatchErr
		if errors.As(err, &mismatch) {
			return false, cerrors.NewLimitMismatchError(key, mismatch.Established, mismatch.Requested)
		}
		return false, err
	}
	return ok, nil
}

// ReleaseWriter removes key's writer slot iff owner currently holds it.
func (e *Engine) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	return e.adapter.ReleaseWriter(ctx, key, owner)
}

// ReleaseReader removes slotID's reader slot for key.
func (e *Engine) ReleaseReader(ctx context.Context, key, slotID string) (bool, error) {
	return e.adapter.ReleaseReader(ctx, key, slotID)
}

// ForceReleaseAllReaders removes every reader slot for key.
func (e *Engine) ForceReleaseAllReaders(ctx context.Context, key string) (bool, error) {
	return e.adapter.ForceReleaseAllReaders(ctx, key)
}

// RefreshWriter sets owner's writer expiration to now plus ttl.
func (e *Engine) RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return e.adapter.RefreshWriter(ctx, key, owner, ttl)
}

// RefreshReader sets slotID's reader expiration to now plus ttl.
func (e *Engine) RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	return e.adapter.RefreshReader(ctx, key, slotID, ttl)
}

// GetState returns exactly one of {writer, reader}, never both, per
// spec §4.2.
func (e *Engine) GetState(ctx context.Context, key string) (State, error) {
	return e.adapter.GetState(ctx, key)
}
