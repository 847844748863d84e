// Package locktest is the exclusive-lock conformance suite (component
// F of spec.md §2): one RunSuite any lockengine.RichAdapter
// implementation must pass, so memory/SQL/Redis/Mongo backends are all
// held to the same behavioral contract from spec §8.
package locktest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises newAdapter() (a fresh, empty adapter per call)
// against every lock property and concrete scenario in spec §8.
func RunSuite(t *testing.T, newAdapter func() lockengine.RichAdapter) {
	t.Helper()

	t.Run("ContentionScenario", func(t *testing.T) { testContentionScenario(t, newAdapter()) })
	t.Run("ExpiryScenario", func(t *testing.T) { testExpiryScenario(t, newAdapter()) })
	t.Run("ForceReleaseAllowsNewOwner", func(t *testing.T) { testForceReleaseAllowsNewOwner(t, newAdapter()) })
	t.Run("ReleaseByNonOwnerFails", func(t *testing.T) { testReleaseByNonOwnerFails(t, newAdapter()) })
	t.Run("RefreshExtendsRemainingTime", func(t *testing.T) { testRefreshExtendsRemainingTime(t, newAdapter()) })
}

func testContentionScenario(t *testing.T, adapter lockengine.RichAdapter) {
	ctx := context.Background()
	engine := lockengine.New(adapter)

	ok, err := engine.Acquire(ctx, "a", "o1", nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "a", "o2", nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = engine.Release(ctx, "a", "o2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = engine.Release(ctx, "a", "o1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Acquire(ctx, "a", "o2", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func testExpiryScenario(t *testing.T, adapter lockengine.RichAdapter) {
	ctx := context.Background()
	engine := lockengine.New(adapter)

	ttl := 50 * time.Millisecond
	ok, err := engine.Acquire(ctx, "a", "o1", &ttl)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	ok, err = engine.Acquire(ctx, "a", "o2", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func testForceReleaseAllowsNewOwner(t *testing.T, adapter lockengine.RichAdapter) {
	ctx := context.Background()
	engine := lockengine.New(adapter)

	_, err := engine.Acquire(ctx, "a", "o1", nil)
	require.NoError(t, err)

	_, err = engine.ForceRelease(ctx, "a")
	require.NoError(t, err)

	ok, err := engine.Acquire(ctx, "a", uuid.NewString(), nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func testReleaseByNonOwnerFails(t *testing.T, adapter lockengine.RichAdapter) {
	ctx := context.Background()
	engine := lockengine.New(adapter)

	_, err := engine.Acquire(ctx, "a", "o1", nil)
	require.NoError(t, err)

	ok, err := engine.Release(ctx, "a", "intruder")
	require.NoError(t, err)
	require.False(t, ok)

	state, err := engine.GetState(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "o1", state.Owner)
}

func testRefreshExtendsRemainingTime(t *testing.T, adapter lockengine.RichAdapter) {
	ctx := context.Background()
	engine := lockengine.New(adapter)

	ttl := 50 * time.Millisecond
	_, err := engine.Acquire(ctx, "a", "o1", &ttl)
	require.NoError(t, err)

	extended := 5 * time.Second
	ok, err := engine.Refresh(ctx, "a", "o1", extended)
	require.NoError(t, err)
	require.True(t, ok)

	remaining, err := engine.GetRemainingTime(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, remaining)
	require.Greater(t, *remaining, time.Second)
}
