package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

// Breaker is the per-key circuit-breaker engine of spec §4.3,
// parameterized by a policy's Metrics type M. One Breaker instance
// guards one logical service/key.
type Breaker[M Metrics] struct {
	serviceName string
	policy      Policy[M]
	storage     StorageAdapter[M]
	listener    StateChangeListener

	mu sync.Mutex
}

// New builds a Breaker for serviceName using policy, persisting its
// snapshot through storage. storage may be nil, in which case an
// InMemoryStorage is used (the common case: most breakers are
// process-local). listener may be nil.
func New[M Metrics](serviceName string, policy Policy[M], storage StorageAdapter[M], listener StateChangeListener) *Breaker[M] {
	if storage == nil {
		storage = NewInMemoryStorage[M]()
	}

	return &Breaker[M]{
		serviceName: serviceName,
		policy:      policy,
		storage:     storage,
		listener:    listener,
	}
}

// ErrOpen is returned when a call is short-circuited
// because the breaker is Open or Isolated.
type ErrOpen struct {
	ServiceName string
	State       State
}

func (e ErrOpen) Error() string {
	return "circuit breaker for " + e.ServiceName + " is " + string(e.State)
}

// Execute runs fn if the breaker's current state permits it, tracks
// the outcome, and evaluates the transition policy. A short-circuited
// call never invokes fn and returns ErrOpen.
func (b *Breaker[M]) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	var shortCircuit *ErrOpen

	var snap snapshot[M]

	err := b.storage.Transaction(ctx, b.serviceName, func(tx StorageTx[M]) error {
		snap = tx.Load(snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1})

		switch snap.Status {
		case StateIsolated:
			shortCircuit = &ErrOpen{ServiceName: b.serviceName, State: StateIsolated}
			return nil
		case StateOpen:
			backoff := b.policy.BackoffPolicy(snap.Attempt)
			if now.Before(snap.StartedAt.Add(backoff)) {
				shortCircuit = &ErrOpen{ServiceName: b.serviceName, State: StateOpen}
				return nil
			}
			next := snapshot[M]{Status: StateHalfOpen, Metrics: b.policy.InitialMetrics(), Attempt: snap.Attempt}
			tx.Store(next)
			b.notify(snap.Status, next.Status, next.Metrics)
			snap = next
		}

		return nil
	})
	if err != nil {
		return cerrors.NewUnexpectedError(b.serviceName, err)
	}

	if shortCircuit != nil {
		return *shortCircuit
	}

	callErr := fn(ctx)

	return b.record(ctx, now, callErr)
}

func (b *Breaker[M]) record(ctx context.Context, now time.Time, callErr error) error {
	return b.storage.Transaction(ctx, b.serviceName, func(tx StorageTx[M]) error {
		snap := tx.Load(snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1})

		var metrics M
		if callErr == nil {
			metrics = b.policy.TrackSuccess(snap.Metrics)
		} else {
			metrics = b.policy.TrackFailure(snap.Metrics)
		}

		next := snap
		next.Metrics = metrics

		switch snap.Status {
		case StateClosed:
			if b.policy.WhenClosed(metrics, now) == DecisionToOpen {
				next = snapshot[M]{Status: StateOpen, Metrics: b.policy.InitialMetrics(), Attempt: 1, StartedAt: now}
			}
		case StateHalfOpen:
			switch b.policy.WhenHalfOpened(metrics, now) {
			case DecisionToClosed:
				next = snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1}
			case DecisionToOpen:
				next = snapshot[M]{Status: StateOpen, Metrics: b.policy.InitialMetrics(), Attempt: snap.Attempt + 1, StartedAt: now}
			}
		}

		if next.Status != snap.Status || !b.policy.IsEqual(next.Metrics, snap.Metrics) {
			tx.Store(next)
		}

		if next.Status != snap.Status {
			b.notify(snap.Status, next.Status, next.Metrics)
		}

		return nil
	})
}

// Isolate forces the breaker Open until Reset is called, regardless
// of policy decisions (spec §4.3's administrative override).
func (b *Breaker[M]) Isolate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.storage.Transaction(ctx, b.serviceName, func(tx StorageTx[M]) error {
		snap := tx.Load(snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1})
		next := snapshot[M]{Status: StateIsolated, Metrics: b.policy.InitialMetrics(), Attempt: snap.Attempt}
		tx.Store(next)
		b.notify(snap.Status, StateIsolated, next.Metrics)
		return nil
	})
}

// Reset clears an Isolated override (or any other state) back to
// Closed with fresh metrics.
func (b *Breaker[M]) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.storage.Transaction(ctx, b.serviceName, func(tx StorageTx[M]) error {
		snap := tx.Load(snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1})
		next := snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1}
		tx.Store(next)
		b.notify(snap.Status, StateClosed, next.Metrics)
		return nil
	})
}

// State reports the breaker's current state without affecting it.
func (b *Breaker[M]) State(ctx context.Context) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var status State

	err := b.storage.Transaction(ctx, b.serviceName, func(tx StorageTx[M]) error {
		snap := tx.Load(snapshot[M]{Status: StateClosed, Metrics: b.policy.InitialMetrics(), Attempt: 1})
		status = snap.Status
		return nil
	})

	return status, err
}

func (b *Breaker[M]) notify(from, to State, metrics M) {
	if b.listener == nil || from == to {
		return
	}

	b.listener.OnCircuitBreakerStateChange(StateChangeEvent{
		ServiceName: b.serviceName,
		FromState:   from,
		ToState:     to,
		Counts:      metrics.ToCounts(),
	})
}
