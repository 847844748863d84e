package lockengine

import (
	"context"
	"errors"
	"time"
)

// ErrKeyExists is returned by DatabaseAdapter.Insert when key is
// already present, the CAS failure the engine's acquire algorithm
// falls back to UpdateIfExpired on.
var ErrKeyExists = errors.New("lockengine: key already exists")

// RichAdapter exposes lock operations as atomic single calls (spec
// §4.1's "rich adapter"). Backends that natively support compound
// atomic operations (Redis with Lua, MongoDB findOneAndUpdate,
// in-memory) implement this directly.
type RichAdapter interface {
	// Acquire attempts to take ownership of key for owner, succeeding
	// if the key is absent or its current owner's lock has expired.
	// ttl is nil for a non-expiring lock.
	Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error)
	// Release removes key iff owner currently holds it.
	Release(ctx context.Context, key, owner string) (bool, error)
	// ForceRelease removes key unconditionally.
	ForceRelease(ctx context.Context, key string) (bool, error)
	// Refresh extends key's expiration iff owner currently holds it.
	Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// GetState reads key's current state, without mutating it.
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

// DatabaseAdapter exposes the primitive CRUD operations a database
// backend performs inside a transaction (spec §4.1's "database
// adapter"). The engine composes these into the rich operations via
// Bridge.
type DatabaseAdapter interface {
	// Transaction runs fn with serializable isolation.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Insert fails if key is already present.
	Insert(ctx context.Context, key, owner string, expiration *time.Time) error
	// UpdateIfExpired is a CAS: succeeds only when the stored
	// expiration is at or before now. Returns the affected row count.
	UpdateIfExpired(ctx context.Context, key, owner string, expiration *time.Time, now time.Time) (int, error)
	// UpdateExpirationIfOwner is a CAS on owner. Returns the affected
	// row count.
	UpdateExpirationIfOwner(ctx context.Context, key, owner string, newExpiration *time.Time) (int, error)
	// RemoveIfOwner is a CAS delete, returning the prior record (or
	// nil if no row matched).
	RemoveIfOwner(ctx context.Context, key, owner string) (*Record, error)
	// Remove unconditionally deletes key, reporting whether a row was
	// removed.
	Remove(ctx context.Context, key string) (bool, error)
	// Find reads key's current record, or nil if absent.
	Find(ctx context.Context, key string) (*Record, error)
}
