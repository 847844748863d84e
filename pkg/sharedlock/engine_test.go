package sharedlock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/sharedlock"
)

func TestEngine_ReaderWriterExclusionScenario(t *testing.T) {
	e := sharedlock.New(memoryadapter.NewSharedLockAdapter())
	ctx := context.Background()

	ok, err := e.AcquireReader(ctx, "k", "s1", 2, nil)
	if err != nil || !ok {
		t.Fatalf("expected reader acquisition to succeed, got %v %v", ok, err)
	}

	ok, _ = e.AcquireWriter(ctx, "k", "w", nil)
	if ok {
		t.Fatal("expected writer to be blocked by live reader")
	}

	ok, err = e.ReleaseReader(ctx, "k", "s1")
	if err != nil || !ok {
		t.Fatalf("expected release to succeed, got %v %v", ok, err)
	}

	ok, err = e.AcquireWriter(ctx, "k", "w", nil)
	if err != nil || !ok {
		t.Fatalf("expected writer to acquire once readers are gone, got %v %v", ok, err)
	}
}

func TestEngine_ReaderReacquireIsIdempotent(t *testing.T) {
	e := sharedlock.New(memoryadapter.NewSharedLockAdapter())
	ctx := context.Background()

	_, _ = e.AcquireReader(ctx, "k", "s1", 2, nil)

	ok, err := e.AcquireReader(ctx, "k", "s1", 2, nil)
	if err != nil || !ok {
		t.Fatalf("expected idempotent reacquire to succeed, got %v %v", ok, err)
	}

	state, _ := e.GetState(ctx, "k")
	if len(state.Slots) != 1 {
		t.Fatalf("expected set to stay at 1 slot, got %d", len(state.Slots))
	}
}

func TestEngine_ReaderBeyondLimitFails(t *testing.T) {
	e := sharedlock.New(memoryadapter.NewSharedLockAdapter())
	ctx := context.Background()

	_, _ = e.AcquireReader(ctx, "k", "s1", 1, nil)

	ok, err := e.AcquireReader(ctx, "k", "s2", 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected reader beyond limit to fail")
	}
}

func TestEngine_LimitMismatchIsRejected(t *testing.T) {
	e := sharedlock.New(memoryadapter.NewSharedLockAdapter())
	ctx := context.Background()

	_, _ = e.AcquireReader(ctx, "k", "s1", 2, nil)

	_, err := e.AcquireReader(ctx, "k", "s2", 5, nil)

	var mismatch cerrors.LimitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected LimitMismatchError, got %T: %v", err, err)
	}
}

func TestEngine_ForceReleaseAllReadersClearsKey(t *testing.T) {
	e := sharedlock.New(memoryadapter.NewSharedLockAdapter())
	ctx := context.Background()

	_, _ = e.AcquireReader(ctx, "k", "s1", 2, nil)
	_, _ = e.AcquireReader(ctx, "k", "s2", 2, nil)

	ok, err := e.ForceReleaseAllReaders(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}

	state, _ := e.GetState(ctx, "k")
	if state.Mode != sharedlock.None {
		t.Fatalf("expected key to be absent, got mode %v", state.Mode)
	}
}
