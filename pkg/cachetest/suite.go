// Package cachetest is the cache conformance suite (component F of
// spec.md §2).
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises newAdapter() (a fresh, empty adapter per call)
// against the cache properties spec §4.1/§8 implies.
func RunSuite(t *testing.T, newAdapter func() cache.RichAdapter) {
	t.Helper()

	t.Run("SetGetDelete", func(t *testing.T) { testSetGetDelete(t, newAdapter()) })
	t.Run("ExpiresByTTL", func(t *testing.T) { testExpiresByTTL(t, newAdapter()) })
	t.Run("IncrementCreatesAndAccumulates", func(t *testing.T) { testIncrementCreatesAndAccumulates(t, newAdapter()) })
	t.Run("IncrementNonNumericFails", func(t *testing.T) { testIncrementNonNumericFails(t, newAdapter()) })
	t.Run("DecrementSubtracts", func(t *testing.T) { testDecrementSubtracts(t, newAdapter()) })
}

func testSetGetDelete(t *testing.T, adapter cache.RichAdapter) {
	ctx := context.Background()
	c := cache.New(adapter, "k")

	_, found, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, []byte("v1"), nil))

	value, found, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), value)

	ok, err := c.Delete(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, found, err = c.Get(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func testExpiresByTTL(t *testing.T, adapter cache.RichAdapter) {
	ctx := context.Background()
	c := cache.New(adapter, "k")

	ttl := 30 * time.Millisecond
	require.NoError(t, c.Set(ctx, []byte("v1"), &ttl))

	time.Sleep(40 * time.Millisecond)

	_, found, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func testIncrementCreatesAndAccumulates(t *testing.T, adapter cache.RichAdapter) {
	ctx := context.Background()
	c := cache.New(adapter, "counter")

	v, err := c.Increment(ctx, 5, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)

	v, err = c.Increment(ctx, 3, nil)
	require.NoError(t, err)
	require.Equal(t, int64(8), v)
}

func testIncrementNonNumericFails(t *testing.T, adapter cache.RichAdapter) {
	ctx := context.Background()
	c := cache.New(adapter, "k")

	require.NoError(t, c.Set(ctx, []byte("not-a-number"), nil))

	_, err := c.Increment(ctx, 1, nil)
	require.Error(t, err)

	var typeErr cerrors.TypeCacheError
	require.ErrorAs(t, err, &typeErr)
}

func testDecrementSubtracts(t *testing.T, adapter cache.RichAdapter) {
	ctx := context.Background()
	c := cache.New(adapter, "counter")

	_, err := c.Increment(ctx, 10, nil)
	require.NoError(t, err)

	v, err := c.Decrement(ctx, 4, nil)
	require.NoError(t, err)
	require.Equal(t, int64(6), v)
}
