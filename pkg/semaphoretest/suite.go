// Package semaphoretest is the counting-semaphore conformance suite
// (component F of spec.md §2).
package semaphoretest

import (
	"context"
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises newAdapter() (a fresh, empty adapter per call)
// against the counting-semaphore properties of spec §8.
func RunSuite(t *testing.T, newAdapter func() semaphore.RichAdapter) {
	t.Helper()

	t.Run("AcquireUpToLimit", func(t *testing.T) { testAcquireUpToLimit(t, newAdapter()) })
	t.Run("LimitMismatchIsRejected", func(t *testing.T) { testLimitMismatch(t, newAdapter()) })
	t.Run("ReleaseFreesSlot", func(t *testing.T) { testReleaseFreesSlot(t, newAdapter()) })
	t.Run("RefreshExtendsSlot", func(t *testing.T) { testRefreshExtendsSlot(t, newAdapter()) })
	t.Run("ForceReleaseAllClearsKey", func(t *testing.T) { testForceReleaseAllClearsKey(t, newAdapter()) })
}

func testAcquireUpToLimit(t *testing.T, adapter semaphore.RichAdapter) {
	ctx := context.Background()
	engine := semaphore.New(adapter)

	ok, err := engine.Acquire(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "k", "s2", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "k", "s3", 2, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func testLimitMismatch(t *testing.T, adapter semaphore.RichAdapter) {
	ctx := context.Background()
	engine := semaphore.New(adapter)

	_, err := engine.Acquire(ctx, "k", "s1", 3, nil)
	require.NoError(t, err)

	_, err = engine.Acquire(ctx, "k", "s2", 5, nil)
	require.Error(t, err)

	var mismatch cerrors.LimitMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func testReleaseFreesSlot(t *testing.T, adapter semaphore.RichAdapter) {
	ctx := context.Background()
	engine := semaphore.New(adapter)

	_, err := engine.Acquire(ctx, "k", "s1", 1, nil)
	require.NoError(t, err)

	ok, err := engine.Release(ctx, "k", "s1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "k", "s2", 1, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func testRefreshExtendsSlot(t *testing.T, adapter semaphore.RichAdapter) {
	ctx := context.Background()
	engine := semaphore.New(adapter)

	ttl := 50 * time.Millisecond
	_, err := engine.Acquire(ctx, "k", "s1", 1, &ttl)
	require.NoError(t, err)

	ok, err := engine.Refresh(ctx, "k", "s1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	ok, err = engine.Acquire(ctx, "k", "s2", 1, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func testForceReleaseAllClearsKey(t *testing.T, adapter semaphore.RichAdapter) {
	ctx := context.Background()
	engine := semaphore.New(adapter)

	_, err := engine.Acquire(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	_, err = engine.Acquire(ctx, "k", "s2", 2, nil)
	require.NoError(t, err)

	ok, err := engine.ForceReleaseAll(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "k", "s3", 5, nil)
	require.NoError(t, err)
	require.True(t, ok)
}
