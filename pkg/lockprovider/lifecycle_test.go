package lockprovider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/lerian-oss/coord/pkg/lockprovider"
	"github.com/stretchr/testify/require"
)

// lifecycleAdapter wraps a RichAdapter with a fake Lifecycle, the
// shape an SQL-backed lockengine.RichAdapter has in production.
type lifecycleAdapter struct {
	lockengine.RichAdapter
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
	provider, err := lockprovider.New(lockprovider.WithAdapter(memoryadapter.NewLockAdapter()))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProvider_InitDelegatesToLifecycleAdapter(t *testing.T) {
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewLockAdapter(), sweepCount: 7}
	provider, err := lockprovider.New(lockprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, 1, adapter.initCalls)
	require.Equal(t, 1, adapter.deinitCalls)
	require.Equal(t, 1, adapter.sweepCalls)
}

func TestProvider_InitPropagatesLifecycleError(t *testing.T) {
	boom := errors.New("boom")
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewLockAdapter(), err: boom}
	provider, err := lockprovider.New(lockprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.ErrorIs(t, provider.Init(context.Background()), boom)
}
