package cacheprovider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cacheprovider"
	"github.com/stretchr/testify/require"
)

// lifecycleAdapter wraps a RichAdapter with a fake Lifecycle, exactly
// the shape an SQL-backed cache.RichAdapter has in production.
type lifecycleAdapter struct {
	cache.RichAdapter
	initCalls, deinitCalls, sweepCalls int
	sweepCount                         int
	err                                error
}

func (a *lifecycleAdapter) Init(ctx context.Context) error {
	a.initCalls++
	return a.err
}

func (a *lifecycleAdapter) DeInit(ctx context.Context) error {
	a.deinitCalls++
	return a.err
}

func (a *lifecycleAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	a.sweepCalls++
	return a.sweepCount, a.err
}

func TestProvider_InitNoopsWithoutLifecycleAdapter(t *testing.T) {
	provider, err := cacheprovider.New(cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProvider_InitDelegatesToLifecycleAdapter(t *testing.T) {
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewCacheAdapter(), sweepCount: 5}
	provider, err := cacheprovider.New(cacheprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 1, adapter.initCalls)
	require.Equal(t, 1, adapter.deinitCalls)
	require.Equal(t, 1, adapter.sweepCalls)
}

func TestProvider_InitPropagatesLifecycleError(t *testing.T) {
	boom := errors.New("boom")
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewCacheAdapter(), err: boom}
	provider, err := cacheprovider.New(cacheprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.ErrorIs(t, provider.Init(context.Background()), boom)
}
