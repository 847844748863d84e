package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var events []StateChangeEvent

	policy := ConsecutiveBreaker{FailureThreshold: 2, SuccessThreshold: 1, Open: 50 * time.Millisecond}
	b := New[ConsecutiveMetrics]("svc", policy, nil, StateChangeListenerFunc(func(e StateChangeEvent) {
		events = append(events, e)
	}))

	ctx := context.Background()
	boom := errors.New("boom")

	_ = b.Execute(ctx, func(ctx context.Context) error { return boom })
	_ = b.Execute(ctx, func(ctx context.Context) error { return boom })

	state, err := b.State(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state != StateOpen {
		t.Fatalf("got %s want open", state)
	}

	if len(events) != 1 || events[0].ToState != StateOpen {
		t.Fatalf("expected one closed->open transition event, got %+v", events)
	}
}

func TestBreaker_ShortCircuitsWhileOpen(t *testing.T) {
	policy := ConsecutiveBreaker{FailureThreshold: 1, SuccessThreshold: 1, Open: time.Hour}
	b := New[ConsecutiveMetrics]("svc", policy, nil, nil)

	ctx := context.Background()

	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("boom") })

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error { called = true; return nil })

	if called {
		t.Fatal("fn must not be invoked while open")
	}

	var openErr ErrOpen
	if !errors.As(err, &openErr) {
		t.Fatalf("expected ErrOpen, got %T: %v", err, err)
	}
}

func TestBreaker_HalfOpenClosesOnSuccess(t *testing.T) {
	policy := ConsecutiveBreaker{FailureThreshold: 1, SuccessThreshold: 1, Open: 5 * time.Millisecond}
	b := New[ConsecutiveMetrics]("svc", policy, nil, nil)

	ctx := context.Background()

	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("boom") })

	time.Sleep(20 * time.Millisecond)

	err := b.Execute(ctx, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("probe call should have been allowed through: %v", err)
	}

	state, _ := b.State(ctx)
	if state != StateClosed {
		t.Fatalf("got %s want closed after successful probe", state)
	}
}

func TestBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	policy := ConsecutiveBreaker{FailureThreshold: 1, SuccessThreshold: 1, Open: 5 * time.Millisecond}
	b := New[ConsecutiveMetrics]("svc", policy, nil, nil)

	ctx := context.Background()

	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("still down") })

	state, _ := b.State(ctx)
	if state != StateOpen {
		t.Fatalf("got %s want open after failed probe", state)
	}
}

func TestBreaker_IsolateAndReset(t *testing.T) {
	policy := ConsecutiveBreaker{FailureThreshold: 5, SuccessThreshold: 1, Open: time.Second}
	b := New[ConsecutiveMetrics]("svc", policy, nil, nil)

	ctx := context.Background()

	if err := b.Isolate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ := b.State(ctx)
	if state != StateIsolated {
		t.Fatalf("got %s want isolated", state)
	}

	err := b.Execute(ctx, func(ctx context.Context) error { return nil })

	var openErr ErrOpen
	if !errors.As(err, &openErr) || openErr.State != StateIsolated {
		t.Fatalf("expected isolated short-circuit, got %v", err)
	}

	if err := b.Reset(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ = b.State(ctx)
	if state != StateClosed {
		t.Fatalf("got %s want closed after reset", state)
	}
}

func TestCountBreaker_OpensOnFailureRatio(t *testing.T) {
	policy := CountBreaker{MinimumThroughput: 4, Threshold: 0.5, SamplingDuration: time.Minute, Open: time.Hour}
	b := New[WindowMetrics]("svc", policy, nil, nil)

	ctx := context.Background()

	_ = b.Execute(ctx, func(ctx context.Context) error { return nil })
	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("x") })
	_ = b.Execute(ctx, func(ctx context.Context) error { return errors.New("x") })
	_ = b.Execute(ctx, func(ctx context.Context) error { return nil })

	state, _ := b.State(ctx)
	if state != StateOpen {
		t.Fatalf("got %s want open", state)
	}
}
