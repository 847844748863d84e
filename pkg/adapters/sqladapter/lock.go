package sqladapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/lerian-oss/coord/pkg/dbtx"
	"github.com/lerian-oss/coord/pkg/lockengine"
)

// LockAdapter is the lockengine.RichAdapter backed by the `lock` table.
type LockAdapter struct {
	db *sql.DB
}

// NewLockAdapter builds a LockAdapter over db.
func NewLockAdapter(db *sql.DB) *LockAdapter {
	return &LockAdapter{db: db}
}

func (a *LockAdapter) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	var expiration sql.NullInt64
	if ttl != nil {
		expiration = toMillisPtr(ptrTime(time.Now().Add(*ttl)))
	}

	query, args, err := statementBuilder.Insert("lock").
		Columns("key", "owner", "expiration").
		Values(key, owner, expiration).
		Suffix(`ON CONFLICT (key) DO UPDATE SET owner = EXCLUDED.owner, expiration = EXCLUDED.expiration
			WHERE lock.expiration IS NOT NULL AND lock.expiration <= ?
			RETURNING key`, epochMillis(time.Now())).
		ToSql()
	if err != nil {
		return false, err
	}

	row := executor.QueryRowContext(ctx, query, args...)

	var returnedKey string
	if err := row.Scan(&returnedKey); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (a *LockAdapter) Release(ctx context.Context, key, owner string) (bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	query, args, err := statementBuilder.Delete("lock").
		Where("key = ? AND owner = ?", key, owner).
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

func (a *LockAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	query, args, err := statementBuilder.Delete("lock").
		Where("key = ?", key).
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

func (a *LockAdapter) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	newExpiration := epochMillis(time.Now().Add(ttl))

	query, args, err := statementBuilder.Update("lock").
		Set("expiration", newExpiration).
		Where("key = ? AND owner = ?", key, owner).
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

func (a *LockAdapter) GetState(ctx context.Context, key string) (lockengine.State, error) {
	executor := dbtx.GetExecutor(ctx, a.db)

	query, args, err := statementBuilder.Select("owner", "expiration").
		From("lock").
		Where("key = ?", key).
		ToSql()
	if err != nil {
		return lockengine.State{}, err
	}

	var owner string
	var expiration sql.NullInt64

	row := executor.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&owner, &expiration); err != nil {
		if err == sql.ErrNoRows {
			return lockengine.State{Status: lockengine.Unlocked}, nil
		}
		return lockengine.State{}, err
	}

	if expired(expiration, time.Now()) {
		return lockengine.State{Status: lockengine.Unlocked}, nil
	}

	return lockengine.State{
		Status:     lockengine.Owned,
		Owner:      owner,
		Expiration: fromMillisPtr(expiration),
	}, nil
}

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func ptrTime(t time.Time) *time.Time { return &t }

var _ lockengine.RichAdapter = (*LockAdapter)(nil)
