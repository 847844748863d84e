package semaphore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/semaphore"
)

func TestEngine_AcquireUpToLimit(t *testing.T) {
	e := semaphore.New(memoryadapter.NewSemaphoreAdapter())
	ctx := context.Background()

	ok, err := e.Acquire(ctx, "k", "s1", 2, nil)
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}

	ok, err = e.Acquire(ctx, "k", "s2", 2, nil)
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}

	ok, err = e.Acquire(ctx, "k", "s3", 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected third acquisition beyond limit to fail")
	}
}

func TestEngine_LimitMismatch(t *testing.T) {
	e := semaphore.New(memoryadapter.NewSemaphoreAdapter())
	ctx := context.Background()

	_, _ = e.Acquire(ctx, "k", "s1", 3, nil)

	_, err := e.Acquire(ctx, "k", "s2", 9, nil)

	var mismatch cerrors.LimitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected LimitMismatchError, got %T: %v", err, err)
	}
}

func TestEngine_ReleaseFreesSlot(t *testing.T) {
	e := semaphore.New(memoryadapter.NewSemaphoreAdapter())
	ctx := context.Background()

	_, _ = e.Acquire(ctx, "k", "s1", 1, nil)

	ok, err := e.Release(ctx, "k", "s1")
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}

	ok, err = e.Acquire(ctx, "k", "s2", 1, nil)
	if err != nil || !ok {
		t.Fatalf("expected slot to be free after release, got %v %v", ok, err)
	}
}
