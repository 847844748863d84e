package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

func TestHedgingSequential_FastHedgeWinsAfterSlowPrimary(t *testing.T) {
	var calls int32

	fn := func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			time.Sleep(100 * time.Millisecond)
			return 1, nil
		}
		return 2, nil
	}

	cfg := HedgingConfig{MaxHedges: 1, Delay: 10 * time.Millisecond}

	got, err := Run(context.Background(), fn, HedgingSequential[int](cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 2 {
		t.Fatalf("got %d want 2 (the hedge should win)", got)
	}
}

func TestHedgingSequential_AllFailWrapsInHedgingAsyncError(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 0, errors.New("down") }

	cfg := HedgingConfig{MaxHedges: 2, Delay: 5 * time.Millisecond}

	_, err := Run(context.Background(), fn, HedgingSequential[int](cfg))

	var hedgeErr cerrors.HedgingAsyncError
	if !errors.As(err, &hedgeErr) {
		t.Fatalf("expected HedgingAsyncError, got %T: %v", err, err)
	}

	if len(hedgeErr.Errors) != 3 {
		t.Fatalf("got %d errors want 3", len(hedgeErr.Errors))
	}
}

func TestHedgingConcurrent_FirstSuccessWins(t *testing.T) {
	fn := func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, cerrors.ResolvedError{}
		case <-time.After(5 * time.Millisecond):
			return 9, nil
		}
	}

	cfg := HedgingConfig{MaxHedges: 3, Delay: time.Hour}

	got, err := Run(context.Background(), fn, HedgingConcurrent[int](cfg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 9 {
		t.Fatalf("got %d want 9", got)
	}
}
