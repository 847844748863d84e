package resilience

import (
	"context"
	"errors"
	"testing"
)

func TestFallback_SubstitutesOnError(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 0, errors.New("down") }

	cfg := FallbackConfig[int]{
		Value: func(ctx context.Context, cause error) (int, error) { return -1, nil },
	}

	got, err := Run(context.Background(), fn, Fallback[int](cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != -1 {
		t.Fatalf("got %d want -1", got)
	}
}

func TestFallback_PassesThroughOnSuccess(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 5, nil }

	called := false
	cfg := FallbackConfig[int]{
		Value: func(ctx context.Context, cause error) (int, error) {
			called = true
			return -1, nil
		},
	}

	got, err := Run(context.Background(), fn, Fallback[int](cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 5 || called {
		t.Fatalf("fallback should not be invoked on success")
	}
}

func TestFallback_ErrorPolicyRejectionPropagates(t *testing.T) {
	sentinel := errors.New("fatal")
	fn := func(ctx context.Context) (int, error) { return 0, sentinel }

	cfg := FallbackConfig[int]{
		Value:       func(ctx context.Context, cause error) (int, error) { return -1, nil },
		ErrorPolicy: func(err error) bool { return false },
	}

	_, err := Run(context.Background(), fn, Fallback[int](cfg))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel to propagate, got %v", err)
	}
}
