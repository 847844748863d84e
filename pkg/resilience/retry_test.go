package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}

	cfg := DefaultRetryConfig().WithInitialBackoff(time.Millisecond).WithMaxBackoff(time.Millisecond * 5)

	got, err := Run(context.Background(), fn, Retry[int](cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 42 {
		t.Fatalf("got %d want 42", got)
	}

	if attempts != 3 {
		t.Fatalf("got %d attempts want 3", attempts)
	}
}

func TestRetry_ExhaustionWrapsLastError(t *testing.T) {
	boom := errors.New("boom")
	fn := func(ctx context.Context) (int, error) { return 0, boom }

	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialBackoff(time.Millisecond).WithMaxBackoff(time.Millisecond * 5)

	_, err := Run(context.Background(), fn, Retry[int](cfg))

	var retryErr cerrors.RetryAsyncError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryAsyncError, got %T: %v", err, err)
	}

	if retryErr.Attempts != 3 {
		t.Fatalf("got %d want 3", retryErr.Attempts)
	}

	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause to be boom")
	}
}

func TestRetry_NonRetryableErrorStopsImmediately(t *testing.T) {
	attempts := 0
	sentinel := errors.New("fatal")
	fn := func(ctx context.Context) (int, error) {
		attempts++
		return 0, sentinel
	}

	cfg := DefaultRetryConfig().WithErrorPolicy(func(err error) bool { return false })

	_, err := Run(context.Background(), fn, Retry[int](cfg))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error unwrapped, got %v", err)
	}

	if attempts != 1 {
		t.Fatalf("got %d attempts want 1", attempts)
	}
}

func TestRetryConfig_ValidateRejectsBadJitter(t *testing.T) {
	cfg := DefaultRetryConfig().WithJitterFactor(2)
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
