// Package sharedlocktest is the reader/writer shared-lock conformance
// suite (component F of spec.md §2).
package sharedlocktest

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises newAdapter() (a fresh, empty adapter per call)
// against every shared-lock property and concrete scenario in spec §8.
func RunSuite(t *testing.T, newAdapter func() sharedlock.RichAdapter) {
	t.Helper()

	t.Run("ReaderWriterExclusionScenario", func(t *testing.T) { testReaderWriterExclusion(t, newAdapter()) })
	t.Run("ReaderReacquireIsIdempotent", func(t *testing.T) { testReaderReacquireIdempotent(t, newAdapter()) })
	t.Run("ReaderBeyondLimitFails", func(t *testing.T) { testReaderBeyondLimitFails(t, newAdapter()) })
	t.Run("LimitMismatchIsRejected", func(t *testing.T) { testLimitMismatch(t, newAdapter()) })
	t.Run("ForceReleaseAllReadersClearsKey", func(t *testing.T) { testForceReleaseAllReadersClearsKey(t, newAdapter()) })
}

func testReaderWriterExclusion(t *testing.T, adapter sharedlock.RichAdapter) {
	ctx := context.Background()
	engine := sharedlock.New(adapter)

	ok, err := engine.AcquireReader(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.AcquireWriter(ctx, "k", "w", nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = engine.ReleaseReader(ctx, "k", "s1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.AcquireWriter(ctx, "k", "w", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func testReaderReacquireIdempotent(t *testing.T, adapter sharedlock.RichAdapter) {
	ctx := context.Background()
	engine := sharedlock.New(adapter)

	ok, err := engine.AcquireReader(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.AcquireReader(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)

	state, err := engine.GetState(ctx, "k")
	require.NoError(t, err)
	require.Len(t, state.Slots, 1)
}

func testReaderBeyondLimitFails(t *testing.T, adapter sharedlock.RichAdapter) {
	ctx := context.Background()
	engine := sharedlock.New(adapter)

	ok, err := engine.AcquireReader(ctx, "k", "s1", 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.AcquireReader(ctx, "k", "s2", 1, nil)
	require.NoError(t, err)
	require.False(t, ok)

	state, err := engine.GetState(ctx, "k")
	require.NoError(t, err)
	require.Len(t, state.Slots, 1)
}

func testLimitMismatch(t *testing.T, adapter sharedlock.RichAdapter) {
	ctx := context.Background()
	engine := sharedlock.New(adapter)

	_, err := engine.AcquireReader(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)

	_, err = engine.AcquireReader(ctx, "k", "s2", 5, nil)
	require.Error(t, err)

	var mismatch cerrors.LimitMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func testForceReleaseAllReadersClearsKey(t *testing.T, adapter sharedlock.RichAdapter) {
	ctx := context.Background()
	engine := sharedlock.New(adapter)

	_, err := engine.AcquireReader(ctx, "k", "s1", 2, nil)
	require.NoError(t, err)
	_, err = engine.AcquireReader(ctx, "k", "s2", 2, nil)
	require.NoError(t, err)

	ok, err := engine.ForceReleaseAllReaders(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.AcquireWriter(ctx, "k", "w", nil)
	require.NoError(t, err)
	require.True(t, ok)
}
