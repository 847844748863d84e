package sqladapter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/lerian-oss/coord/pkg/sqlstore"
)

// runMigration applies (up) or tears down (down) the coordination
// table family against db, the same migrate.NewWithInstance call
// common/mpostgres.PostgresConnection.migrate makes, but sourced from
// pkg/sqlstore's embedded schema instead of a filesystem migrations
// directory.
func runMigration(db *sql.DB, up bool) error {
	source, err := sqlstore.MigrationSource()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MultiStatementEnabled: true})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "coord", driver)
	if err != nil {
		return err
	}

	if up {
		err = m.Up()
	} else {
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Init applies the lock/semaphore/cache table family's migrations.
// Every primitive's adapter shares the same embedded migration, so
// calling Init through any one of them is enough; calling it again
// through another is a golang-migrate no-op.
func (a *LockAdapter) Init(ctx context.Context) error { return runMigration(a.db, true) }

// DeInit tears down the table family.
func (a *LockAdapter) DeInit(ctx context.Context) error { return runMigration(a.db, false) }

// RemoveAllExpired deletes every lock row whose expiration has
// passed, reporting how many were removed.
func (a *LockAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	return a.deleteExpired(ctx, "lock", "expiration", time.Now())
}

func (a *CacheAdapter) Init(ctx context.Context) error   { return runMigration(a.db, true) }
func (a *CacheAdapter) DeInit(ctx context.Context) error { return runMigration(a.db, false) }

// RemoveAllExpired deletes every cache row whose expiration has passed.
func (a *CacheAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	return a.deleteExpired(ctx, "cache", "expires_at", time.Now())
}

func (a *SharedLockAdapter) Init(ctx context.Context) error   { return runMigration(a.db, true) }
func (a *SharedLockAdapter) DeInit(ctx context.Context) error { return runMigration(a.db, false) }

// RemoveAllExpired deletes every expired writer-lock row and every
// expired reader slot, then deletes each reader_semaphore row left
// with no slots, reporting the combined count of writer rows and
// reader slots removed.
func (a *SharedLockAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	now := time.Now()

	writers, err := a.deleteExpired(ctx, "writer_lock", "expiration", now)
	if err != nil {
		return 0, err
	}

	slots, err := a.deleteExpired(ctx, "reader_semaphore_slot", "expiration", now)
	if err != nil {
		return 0, err
	}

	if _, err := a.db.ExecContext(ctx, `DELETE FROM reader_semaphore WHERE key NOT IN (SELECT key FROM reader_semaphore_slot)`); err != nil {
		return 0, err
	}

	return writers + slots, nil
}

func (a *SemaphoreAdapter) Init(ctx context.Context) error   { return runMigration(a.db, true) }
func (a *SemaphoreAdapter) DeInit(ctx context.Context) error { return runMigration(a.db, false) }

// RemoveAllExpired deletes every expired semaphore slot, removing the
// parent group once its last slot is gone.
func (a *SemaphoreAdapter) RemoveAllExpired(ctx context.Context) (int, error) {
	slots, err := a.deleteExpired(ctx, "semaphore_slot", "expiration", time.Now())
	if err != nil {
		return 0, err
	}

	if _, err := a.db.ExecContext(ctx, `DELETE FROM semaphore WHERE key NOT IN (SELECT key FROM semaphore_slot)`); err != nil {
		return 0, err
	}

	return slots, nil
}

// deleteExpired removes every row from table whose expiration column
// is non-null and at or before now, returning the affected row count.
func deleteExpired(ctx context.Context, db *sql.DB, table, column string, now time.Time) (int, error) {
	query, args, err := statementBuilder.Delete(table).
		Where(column+" IS NOT NULL AND "+column+" <= ?", epochMillis(now)).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

func (a *LockAdapter) deleteExpired(ctx context.Context, table, column string, now time.Time) (int, error) {
	return deleteExpired(ctx, a.db, table, column, now)
}

func (a *CacheAdapter) deleteExpired(ctx context.Context, table, column string, now time.Time) (int, error) {
	return deleteExpired(ctx, a.db, table, column, now)
}

func (a *SharedLockAdapter) deleteExpired(ctx context.Context, table, column string, now time.Time) (int, error) {
	return deleteExpired(ctx, a.db, table, column, now)
}

func (a *SemaphoreAdapter) deleteExpired(ctx context.Context, table, column string, now time.Time) (int, error) {
	return deleteExpired(ctx, a.db, table, column, now)
}

var (
	_ lockengine.Lifecycle = (*LockAdapter)(nil)
	_ cache.Lifecycle      = (*CacheAdapter)(nil)
	_ sharedlock.Lifecycle = (*SharedLockAdapter)(nil)
	_ semaphore.Lifecycle  = (*SemaphoreAdapter)(nil)
)
