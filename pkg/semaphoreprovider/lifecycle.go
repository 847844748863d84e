package semaphoreprovider

import (
	"context"

	"github.com/lerian-oss/coord/pkg/semaphore"
)

// Init runs the backend's setup hook, if it has one (spec §4.1's
// init/deInit/removeAllExpired). Backends without a Lifecycle hook
// (e.g. memoryadapter, redisadapter) make this a no-op.
func (p *Provider) Init(ctx context.Context) error {
	lc, ok := p.defaults.Adapter.(semaphore.Lifecycle)
	if !ok {
		return nil
	}

	return lc.Init(ctx)
}

// DeInit runs the backend's teardown hook, if it has one.
func (p *Provider) DeInit(ctx context.Context) error {
	lc, ok := p.defaults.Adapter.(semaphore.Lifecycle)
	if !ok {
		return nil
	}

	return lc.DeInit(ctx)
}

// RemoveAllExpired sweeps every expired slot the backend is holding,
// if it supports the hook, reporting how many it removed.
func (p *Provider) RemoveAllExpired(ctx context.Context) (int, error) {
	lc, ok := p.defaults.Adapter.(semaphore.Lifecycle)
	if !ok {
		return 0, nil
	}

	return lc.RemoveAllExpired(ctx)
}
