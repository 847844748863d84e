package sharedlock

import (
	"context"
	"fmt"
	"time"
)

// LimitMismatchErr is returned by RichAdapter.AcquireReader when key
// was already established with a different limit (spec §4.2: "the
// limit is established on first slot acquisition and must match on
// subsequent calls").
type LimitMismatchErr struct {
	Established int
	Requested   int
}

func (e LimitMismatchErr) Error() string {
	return fmt.Sprintf("sharedlock: established limit %d, requested %d", e.Established, e.Requested)
}

// RichAdapter exposes shared-lock operations as atomic single calls
// (spec §4.1's "rich adapter").
type RichAdapter interface {
	// AcquireWriter succeeds iff no live reader set exists and the
	// writer slot is free, expired, or already held by owner.
	AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error)
	// AcquireReader succeeds iff no live writer exists and either no
	// reader set exists yet (created with limit) or the set has room.
	// Re-acquiring slotID is idempotent. Returns LimitMismatchErr if
	// key was established with a different limit.
	AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error)
	// ReleaseWriter removes the writer slot iff owner currently holds it.
	ReleaseWriter(ctx context.Context, key, owner string) (bool, error)
	// ReleaseReader removes one slot; when the last slot is removed
	// the reader set itself is removed.
	ReleaseReader(ctx context.Context, key, slotID string) (bool, error)
	// ForceReleaseAllReaders removes every slot atomically.
	ForceReleaseAllReaders(ctx context.Context, key string) (bool, error)
	// RefreshWriter requires owner to currently hold a non-nil
	// expiration; sets it to now plus ttl.
	RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// RefreshReader requires slotID to currently hold a non-nil
	// expiration; sets it to now plus ttl.
	RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error)
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
