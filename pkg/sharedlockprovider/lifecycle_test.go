package sharedlockprovider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/lerian-oss/coord/pkg/sharedlockprovider"
	"github.com/stretchr/testify/require"
)

// lifecycleAdapter wraps a RichAdapter with a fake Lifecycle, the
// shape an SQL-backed sharedlock.RichAdapter has in production.
type lifecycleAdapter struct {
	sharedlock.RichAdapter
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
	provider, err := sharedlockprovider.New(sharedlockprovider.WithAdapter(memoryadapter.NewSharedLockAdapter()))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProvider_InitDelegatesToLifecycleAdapter(t *testing.T) {
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewSharedLockAdapter(), sweepCount: 4}
	provider, err := sharedlockprovider.New(sharedlockprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.NoError(t, provider.Init(context.Background()))
	require.NoError(t, provider.DeInit(context.Background()))

	n, err := provider.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 1, adapter.initCalls)
	require.Equal(t, 1, adapter.deinitCalls)
	require.Equal(t, 1, adapter.sweepCalls)
}

func TestProvider_InitPropagatesLifecycleError(t *testing.T) {
	boom := errors.New("boom")
	adapter := &lifecycleAdapter{RichAdapter: memoryadapter.NewSharedLockAdapter(), err: boom}
	provider, err := sharedlockprovider.New(sharedlockprovider.WithAdapter(adapter))
	require.NoError(t, err)

	require.ErrorIs(t, provider.Init(context.Background()), boom)
}
