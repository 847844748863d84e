package redisadapter_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/redisadapter"
	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/lerian-oss/coord/pkg/semaphoretest"
	"github.com/stretchr/testify/require"
)

func TestRedisSemaphoreAdapter_ConformsToSemaphoreSuite(t *testing.T) {
	client := newTestClient(t)

	semaphoretest.RunSuite(t, func() semaphore.RichAdapter {
		require.NoError(t, client.FlushAll(context.Background()).Err())
		return redisadapter.NewSemaphoreAdapter(client)
	})
}
