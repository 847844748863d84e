package semaphore

import (
	"context"
	"fmt"
	"time"
)

// LimitMismatchErr is returned by RichAdapter.Acquire when key was
// already established with a different limit (spec §4.2).
type LimitMismatchErr struct {
	Established int
	Requested   int
}

func (e LimitMismatchErr) Error() string {
	return fmt.Sprintf("semaphore: established limit %d, requested %d", e.Established, e.Requested)
}

// RichAdapter exposes semaphore operations as atomic single calls.
type RichAdapter interface {
	// Acquire succeeds iff no slot set exists yet (created with
	// limit) or the set has room; re-acquiring slotID is idempotent.
	Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error)
	// Release removes one slot; when the last slot is removed the
	// record itself is removed.
	Release(ctx context.Context, key, slotID string) (bool, error)
	// ForceReleaseAll removes every slot atomically.
	ForceReleaseAll(ctx context.Context, key string) (bool, error)
	// Refresh requires slotID to currently hold a non-nil expiration;
	// sets it to now plus ttl.
	Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error)
	// GetState reads key's current state.
	GetState(ctx context.Context, key string) (State, error)
}

// Lifecycle is implemented by adapters that need setup/teardown
// (spec §4.1's init/deInit/removeAllExpired hooks). Optional: the
// provider probes for it and skip the hooks if absent.
type Lifecycle interface {
	Init(ctx context.Context) error
	DeInit(ctx context.Context) error
	RemoveAllExpired(ctx context.Context) (int, error)
}
