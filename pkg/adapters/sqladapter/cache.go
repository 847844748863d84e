package sqladapter

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/dbtx"
)

// groupName is the fixed group the coordination library's cache table
// uses; spec.md §6's "group" column exists for multi-tenant cache
// instances sharing one physical table, which this library does not
// need (namespacing already happens in the key itself via pkg/keyscope).
const groupName = ""

// CacheAdapter is the cache.RichAdapter backed by the `cache` table.
type CacheAdapter struct {
	db *sql.DB
}

// NewCacheAdapter builds a CacheAdapter over db.
func NewCacheAdapter(db *sql.DB) *CacheAdapter {
	return &CacheAdapter{db: db}
}

func (a *CacheAdapter) get(ctx context.Context, executor dbtx.Executor, key string) ([]byte, sql.NullInt64, bool, error) {
	query, args, err := statementBuilder.Select("value", "expires_at").
		From("cache").
		Where("key = ? AND group_name = ?", key, groupName).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, sql.NullInt64{}, false, err
	}

	var value []byte
	var expiresAt sql.NullInt64

	row := executor.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.NullInt64{}, false, nil
		}
		return nil, sql.NullInt64{}, false, err
	}

	return value, expiresAt, true, nil
}

func (a *CacheAdapter) upsert(ctx context.Context, executor dbtx.Executor, key string, value []byte, expiresAt sql.NullInt64) error {
	query, args, err := statementBuilder.Insert("cache").
		Columns("key", "group_name", "value", "expires_at").
		Values(key, groupName, value, expiresAt).
		Suffix("ON CONFLICT (key, group_name) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *CacheAdapter) delete(ctx context.Context, executor dbtx.Executor, key string) (bool, error) {
	query, args, err := statementBuilder.Delete("cache").
		Where("key = ? AND group_name = ?", key, groupName).
		ToSql()
	if err != nil {
		return false, err
	}
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return rowsAffected(result)
}

func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	value, expiresAt, found, err := a.get(ctx, executor, key)
	if err != nil || !found {
		return nil, false, err
	}

	if expired(expiresAt, time.Now()) {
		return nil, false, nil
	}

	return value, true, nil
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	executor := dbtx.GetExecutor(ctx, a.db)

	var expiresAt sql.NullInt64
	if ttl != nil {
		expiresAt = toMillisPtr(ptrTime(time.Now().Add(*ttl)))
	}

	return a.upsert(ctx, executor, key, value, expiresAt)
}

func (a *CacheAdapter) Delete(ctx context.Context, key string) (bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)
	return a.delete(ctx, executor, key)
}

func (a *CacheAdapter) Increment(ctx context.Context, key string, delta int64, ttl *time.Duration) (int64, error) {
	var result int64

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		value, expiresAt, found, err := a.get(ctx, executor, key)
		if err != nil {
			return err
		}

		if !found || expired(expiresAt, now) {
			result = delta

			var newExpiresAt sql.NullInt64
			if ttl != nil {
				newExpiresAt = toMillisPtr(ptrTime(now.Add(*ttl)))
			}

			return a.upsert(ctx, executor, key, []byte(strconv.FormatInt(result, 10)), newExpiresAt)
		}

		current, parseErr := strconv.ParseInt(string(value), 10, 64)
		if parseErr != nil {
			return cerrors.NewTypeCacheError(key)
		}

		result = current + delta

		return a.upsert(ctx, executor, key, []byte(strconv.FormatInt(result, 10)), expiresAt)
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

var _ cache.RichAdapter = (*CacheAdapter)(nil)
