package circuitbreaker

import (
	"context"
	"sync"
)

// StorageAdapter persists breaker snapshots (spec §4.3:
// "ICircuitBreakerStorageAdapter::transaction using an atomicUpdate").
// Inside one Transaction the Breaker loads the current snapshot (or
// the seed it supplies), computes the next one, and stores it only if
// it differs from the one loaded.
type StorageAdapter[M Metrics] interface {
	// Transaction runs fn with exclusive access to the named key's
	// snapshot for the duration of the call.
	Transaction(ctx context.Context, key string, fn func(tx StorageTx[M]) error) error
}

// StorageTx is the narrow read/write surface the Breaker uses inside
// one Transaction call.
type StorageTx[M Metrics] interface {
	Load(seed snapshot[M]) snapshot[M]
	Store(next snapshot[M])
}

// InMemoryStorage is the reference StorageAdapter: an in-process map
// guarded by a mutex, sufficient for the in-memory backend and for
// tests. It is the only StorageAdapter in this module; the adapters
// packages provide no SQL- or Redis-backed breaker storage.
type InMemoryStorage[M Metrics] struct {
	mu    sync.Mutex
	state map[string]snapshot[M]
}

// NewInMemoryStorage builds an empty InMemoryStorage.
func NewInMemoryStorage[M Metrics]() *InMemoryStorage[M] {
	return &InMemoryStorage[M]{state: make(map[string]snapshot[M])}
}

func (s *InMemoryStorage[M]) Transaction(ctx context.Context, key string, fn func(tx StorageTx[M]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx[M]{parent: s, key: key}

	return fn(tx)
}

type memTx[M Metrics] struct {
	parent *InMemoryStorage[M]
	key    string
}

func (t *memTx[M]) Load(seed snapshot[M]) snapshot[M] {
	if existing, ok := t.parent.state[t.key]; ok {
		return existing
	}
	return seed
}

func (t *memTx[M]) Store(next snapshot[M]) {
	t.parent.state[t.key] = next
}
