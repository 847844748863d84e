package mredis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lerian-oss/coord/common/mlog"
	"github.com/redis/go-redis/v9"
)

// RedisConnection is a hub which deals with redis connections, the
// bootstrap-layer counterpart to redisadapter's Client injection: an
// embedding application dials through GetDB once, then hands the
// resulting *redis.Client straight to redisadapter.New{Lock,Cache,
// Semaphore,SharedLock}Adapter, all of which only need the redis.Cmdable
// + Watch surface that a plain *redis.Client already satisfies.
type RedisConnection struct {
	ConnectionStringSource string
	Client                 *redis.Client
	Connected              bool
	Logger                 mlog.Logger
}

// Connect keeps a singleton connection with redis. A malformed
// ConnectionStringSource is a caller configuration error, not a panic:
// every adapter and provider in this library reports failure through a
// returned error, and a connection hub embedded in an application's
// startup path is no different.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	rc.Logger.Info("Connecting to redis...")

	opts, err := redis.ParseURL(rc.ConnectionStringSource)
	if err != nil {
		return fmt.Errorf("parsing redis connection string: %w", err)
	}

	rdb := redis.NewClient(opts)

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rc.Logger.Infof("RedisConnection.Ping %v", zap.Error(err))
		return fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	rc.Logger.Info("Connected to redis ✅ \n")

	rc.Connected = true

	rc.Client = rdb

	return nil
}

// GetDB returns a pointer to the redis connection, initializing it if necessary.
func (rc *RedisConnection) GetDB(ctx context.Context) (*redis.Client, error) {
	if rc.Client == nil {
		if err := rc.Connect(ctx); err != nil {
			rc.Logger.Infof("RedisConnection.GetDB %v", err)
			return nil, err
		}
	}

	return rc.Client, nil
}
