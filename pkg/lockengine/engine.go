package lockengine

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/result"
)

// Default blocking-acquisition tunables (spec §4.2: "Interval and
// time have sensible defaults").
const (
	DefaultBlockingInterval = 50 * time.Millisecond
	DefaultBlockingTime     = 1 * time.Second
)

// BlockingOptions configures AcquireBlocking/AcquireBlockingOrFail.
type BlockingOptions struct {
	// Interval is the sleep between retry attempts.
	Interval time.Duration
	// Time is the total budget across every attempt.
	Time time.Duration
}

func (o BlockingOptions) withDefaults() BlockingOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultBlockingInterval
	}
	if o.Time <= 0 {
		o.Time = DefaultBlockingTime
	}
	return o
}

// Engine is the backend-agnostic lock state machine of spec §4.2,
// driving any RichAdapter (directly, or bridged from a
// DatabaseAdapter).
type Engine struct {
	adapter RichAdapter
}

// New builds an Engine over adapter, which must satisfy RichAdapter
// or DatabaseAdapter (see AsRichAdapter).
func New(adapter any) *Engine {
	return &Engine{adapter: AsRichAdapter(adapter)}
}

// Acquire returns true iff owner now holds key.
func (e *Engine) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	return e.adapter.Acquire(ctx, key, owner, ttl)
}

// AcquireOrFail is Acquire, but fails with FailedAcquireLockError
// instead of returning false.
func (e *Engine) AcquireOrFail(ctx context.Context, key, owner string, ttl *time.Duration) error {
	ok, err := e.Acquire(ctx, key, owner, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return cerrors.NewFailedAcquireLockError(key)
	}
	return nil
}

// AcquireBlocking retries Acquire every opts.Interval until success,
// cancellation, or opts.Time has elapsed. A cancelled ctx or
// exhausted budget returns false without error.
func (e *Engine) AcquireBlocking(ctx context.Context, key, owner string, ttl *time.Duration, opts BlockingOptions) (bool, error) {
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.Time)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		default:
		}

		ok, err := e.Acquire(ctx, key, owner, ttl)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}
	}
}

// AcquireBlockingOrFail is AcquireBlocking, but fails with
// FailedAcquireLockError instead of returning false.
func (e *Engine) AcquireBlockingOrFail(ctx context.Context, key, owner string, ttl *time.Duration, opts BlockingOptions) error {
	ok, err := e.AcquireBlocking(ctx, key, owner, ttl, opts)
	if err != nil {
		return err
	}
	if !ok {
		return cerrors.NewFailedAcquireLockError(key)
	}
	return nil
}

// Release removes key iff owner currently holds it.
func (e *Engine) Release(ctx context.Context, key, owner string) (bool, error) {
	return e.adapter.Release(ctx, key, owner)
}

// ForceRelease removes key unconditionally, reporting whether
// anything was removed.
func (e *Engine) ForceRelease(ctx context.Context, key string) (bool, error) {
	return e.adapter.ForceRelease(ctx, key)
}

// Refresh sets key's expiration to now plus ttl iff owner currently
// holds it.
func (e *Engine) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return e.adapter.Refresh(ctx, key, owner, ttl)
}

// GetState reads key's raw state without collapsing expiration.
func (e *Engine) GetState(ctx context.Context, key string) (State, error) {
	return e.adapter.GetState(ctx, key)
}

// IsExpired reports whether key's current lock (if any) has expired.
func (e *Engine) IsExpired(ctx context.Context, key string) (bool, error) {
	state, err := e.GetState(ctx, key)
	if err != nil {
		return false, err
	}
	return state.IsExpired(time.Now()), nil
}

// IsLocked reports whether key is currently owned and unexpired.
func (e *Engine) IsLocked(ctx context.Context, key string) (bool, error) {
	state, err := e.GetState(ctx, key)
	if err != nil {
		return false, err
	}
	return state.Effective(time.Now()).Status == Owned, nil
}

// GetRemainingTime returns the duration until key's lock expires, or
// nil if it is unlocked, expired, or non-expiring.
func (e *Engine) GetRemainingTime(ctx context.Context, key string) (*time.Duration, error) {
	state, err := e.GetState(ctx, key)
	if err != nil {
		return nil, err
	}
	return state.RemainingTime(time.Now()), nil
}

// Run acquires key for owner, invokes fn, and releases the lock on
// every exit path, returning a Result so acquisition failure is data
// rather than a Go error (spec §4.2's "guaranteed-release scope").
func Run[T any](ctx context.Context, e *Engine, key, owner string, ttl *time.Duration, fn func(ctx context.Context) (T, error)) (result.Result[T], error) {
	ok, err := e.Acquire(ctx, key, owner, ttl)
	if err != nil {
		var zero result.Result[T]
		return zero, err
	}

	if !ok {
		return result.Failed[T](cerrors.NewFailedAcquireLockError(key)), nil
	}

	defer func() { _, _ = e.Release(ctx, key, owner) }()

	value, err := fn(ctx)
	if err != nil {
		return result.Result[T]{}, err
	}

	return result.Ok(value), nil
}

// RunBlocking is Run, but acquires via AcquireBlocking.
func RunBlocking[T any](ctx context.Context, e *Engine, key, owner string, ttl *time.Duration, opts BlockingOptions, fn func(ctx context.Context) (T, error)) (result.Result[T], error) {
	ok, err := e.AcquireBlocking(ctx, key, owner, ttl, opts)
	if err != nil {
		var zero result.Result[T]
		return zero, err
	}

	if !ok {
		return result.Failed[T](cerrors.NewFailedAcquireLockError(key)), nil
	}

	defer func() { _, _ = e.Release(ctx, key, owner) }()

	value, err := fn(ctx)
	if err != nil {
		return result.Result[T]{}, err
	}

	return result.Ok(value), nil
}
