package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/timespan"
)

func TestObserve_FiresStartAndSuccess(t *testing.T) {
	var started, succeeded, finallyRan bool

	fn := func(ctx context.Context) (int, error) { return 1, nil }

	cfg := ObserveConfig[int]{
		OnStart: func(ctx context.Context) { started = true },
		OnSuccess: func(ctx context.Context, result int, elapsed timespan.TimeSpan) {
			succeeded = true
			if result != 1 {
				t.Fatalf("got %d want 1", result)
			}
		},
		OnFinally: func(ctx context.Context, elapsed timespan.TimeSpan) { finallyRan = true },
	}

	got, err := Run(context.Background(), fn, Observe[int](cfg))
	if err != nil || got != 1 {
		t.Fatalf("unexpected result: %d %v", got, err)
	}

	if !started || !succeeded || !finallyRan {
		t.Fatalf("expected all three hooks to fire: started=%v succeeded=%v finallyRan=%v", started, succeeded, finallyRan)
	}
}

func TestObserve_FiresErrorAndFinallyOnFailure(t *testing.T) {
	var sawError, finallyRan bool

	boom := errors.New("boom")
	fn := func(ctx context.Context) (int, error) { return 0, boom }

	cfg := ObserveConfig[int]{
		OnError: func(ctx context.Context, err error, elapsed timespan.TimeSpan) {
			sawError = true
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
		},
		OnFinally: func(ctx context.Context, elapsed timespan.TimeSpan) { finallyRan = true },
	}

	_, err := Run(context.Background(), fn, Observe[int](cfg))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}

	if !sawError || !finallyRan {
		t.Fatalf("expected error and finally hooks to fire: sawError=%v finallyRan=%v", sawError, finallyRan)
	}
}
