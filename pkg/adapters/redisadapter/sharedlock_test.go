package redisadapter_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/redisadapter"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/lerian-oss/coord/pkg/sharedlocktest"
	"github.com/stretchr/testify/require"
)

func TestRedisSharedLockAdapter_ConformsToSharedLockSuite(t *testing.T) {
	client := newTestClient(t)

	sharedlocktest.RunSuite(t, func() sharedlock.RichAdapter {
		require.NoError(t, client.FlushAll(context.Background()).Err())
		return redisadapter.NewSharedLockAdapter(client)
	})
}
