package redisadapter_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lerian-oss/coord/pkg/adapters/redisadapter"
	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/lerian-oss/coord/pkg/locktest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAdapter_ConformsToLockSuite(t *testing.T) {
	client := newTestClient(t)

	locktest.RunSuite(t, func() lockengine.RichAdapter {
		require.NoError(t, client.FlushAll(context.Background()).Err())
		return redisadapter.NewLockAdapter(client)
	})
}
