package sqladapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/lerian-oss/coord/pkg/dbtx"
	"github.com/lerian-oss/coord/pkg/sharedlock"
)

// SharedLockAdapter is the sharedlock.RichAdapter backed by the
// writer_lock and reader_semaphore/reader_semaphore_slot tables.
// Every method runs inside a transaction (SELECT ... FOR UPDATE on the
// row(s) it touches) so the writer/reader mutual-exclusion check and
// the write that follows happen atomically, porting the same
// state-transition decisions pkg/adapters/memoryadapter makes over an
// in-process mutex.
type SharedLockAdapter struct {
	db *sql.DB
}

// NewSharedLockAdapter builds a SharedLockAdapter over db.
func NewSharedLockAdapter(db *sql.DB) *SharedLockAdapter {
	return &SharedLockAdapter{db: db}
}

func (a *SharedLockAdapter) getWriter(ctx context.Context, executor dbtx.Executor, key string) (owner string, expiration sql.NullInt64, found bool, err error) {
	query, args, err := statementBuilder.Select("owner", "expiration").
		From("writer_lock").
		Where("key = ?", key).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", sql.NullInt64{}, false, err
	}

	row := executor.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&owner, &expiration); err != nil {
		if err == sql.ErrNoRows {
			return "", sql.NullInt64{}, false, nil
		}
		return "", sql.NullInt64{}, false, err
	}

	return owner, expiration, true, nil
}

func (a *SharedLockAdapter) deleteWriter(ctx context.Context, executor dbtx.Executor, key string) error {
	query, args, err := statementBuilder.Delete("writer_lock").Where("key = ?", key).ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SharedLockAdapter) upsertWriter(ctx context.Context, executor dbtx.Executor, key, owner string, expiration sql.NullInt64) error {
	query, args, err := statementBuilder.Insert("writer_lock").
		Columns("key", "owner", "expiration").
		Values(key, owner, expiration).
		Suffix("ON CONFLICT (key) DO UPDATE SET owner = EXCLUDED.owner, expiration = EXCLUDED.expiration").
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

type readerSlotRow struct {
	ID         string
	Expiration sql.NullInt64
}

func (a *SharedLockAdapter) getReaderGroup(ctx context.Context, executor dbtx.Executor, key string) (limit int, slots []readerSlotRow, found bool, err error) {
	groupQuery, groupArgs, err := statementBuilder.Select(`"limit"`).
		From("reader_semaphore").
		Where("key = ?", key).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, nil, false, err
	}

	row := executor.QueryRowContext(ctx, groupQuery, groupArgs...)
	if err := row.Scan(&limit); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}

	slotQuery, slotArgs, err := statementBuilder.Select("id", "expiration").
		From("reader_semaphore_slot").
		Where("key = ?", key).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, nil, false, err
	}

	rows, err := executor.QueryContext(ctx, slotQuery, slotArgs...)
	if err != nil {
		return 0, nil, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var s readerSlotRow
		if err := rows.Scan(&s.ID, &s.Expiration); err != nil {
			return 0, nil, false, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, false, err
	}

	return limit, slots, true, nil
}

func (a *SharedLockAdapter) deleteReaderGroup(ctx context.Context, executor dbtx.Executor, key string) error {
	query, args, err := statementBuilder.Delete("reader_semaphore").Where("key = ?", key).ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SharedLockAdapter) insertReaderGroup(ctx context.Context, executor dbtx.Executor, key string, limit int) error {
	query, args, err := statementBuilder.Insert("reader_semaphore").
		Columns("key", `"limit"`).
		Values(key, limit).
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SharedLockAdapter) upsertReaderSlot(ctx context.Context, executor dbtx.Executor, key, slotID string, expiration sql.NullInt64) error {
	query, args, err := statementBuilder.Insert("reader_semaphore_slot").
		Columns("id", "key", "expiration").
		Values(slotID, key, expiration).
		Suffix("ON CONFLICT (id, key) DO UPDATE SET expiration = EXCLUDED.expiration").
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SharedLockAdapter) deleteReaderSlot(ctx context.Context, executor dbtx.Executor, key, slotID string) error {
	query, args, err := statementBuilder.Delete("reader_semaphore_slot").
		Where("key = ? AND id = ?", key, slotID).
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

// liveReaderSlots filters slots to those not expired as of now.
func liveReaderSlots(slots []readerSlotRow, now time.Time) []readerSlotRow {
	live := make([]readerSlotRow, 0, len(slots))
	for _, s := range slots {
		if !expired(s.Expiration, now) {
			live = append(live, s)
		}
	}
	return live
}

func (a *SharedLockAdapter) AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	acquired := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		wOwner, wExpiration, wFound, err := a.getWriter(ctx, executor, key)
		if err != nil {
			return err
		}
		if wFound && !expired(wExpiration, now) && wOwner != owner {
			return nil
		}

		_, slots, rFound, err := a.getReaderGroup(ctx, executor, key)
		if err != nil {
			return err
		}
		if rFound && len(liveReaderSlots(slots, now)) > 0 {
			return nil
		}
		if rFound {
			if err := a.deleteReaderGroup(ctx, executor, key); err != nil {
				return err
			}
		}

		var expiration sql.NullInt64
		if ttl != nil {
			expiration = toMillisPtr(ptrTime(now.Add(*ttl)))
		}

		acquired = true

		return a.upsertWriter(ctx, executor, key, owner, expiration)
	})

	return acquired, err
}

func (a *SharedLockAdapter) AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	acquired := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		wOwner, wExpiration, wFound, err := a.getWriter(ctx, executor, key)
		if err != nil {
			return err
		}
		if wFound && !expired(wExpiration, now) {
			return nil
		}
		if wFound {
			if err := a.deleteWriter(ctx, executor, key); err != nil {
				return err
			}
			_ = wOwner
		}

		var expiration sql.NullInt64
		if ttl != nil {
			expiration = toMillisPtr(ptrTime(now.Add(*ttl)))
		}

		establishedLimit, slots, found, err := a.getReaderGroup(ctx, executor, key)
		if err != nil {
			return err
		}

		if !found {
			acquired = true
			if err := a.insertReaderGroup(ctx, executor, key, limit); err != nil {
				return err
			}
			return a.upsertReaderSlot(ctx, executor, key, slotID, expiration)
		}

		live := liveReaderSlots(slots, now)
		if len(live) == 0 {
			if err := a.deleteReaderGroup(ctx, executor, key); err != nil {
				return err
			}
			acquired = true
			if err := a.insertReaderGroup(ctx, executor, key, limit); err != nil {
				return err
			}
			return a.upsertReaderSlot(ctx, executor, key, slotID, expiration)
		}

		if establishedLimit != limit {
			return sharedlock.LimitMismatchErr{Established: establishedLimit, Requested: limit}
		}

		for _, s := range live {
			if s.ID == slotID {
				acquired = true
				return a.upsertReaderSlot(ctx, executor, key, slotID, expiration)
			}
		}

		if len(live) >= establishedLimit {
			return nil
		}

		acquired = true

		return a.upsertReaderSlot(ctx, executor, key, slotID, expiration)
	})

	return acquired, err
}

func (a *SharedLockAdapter) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	released := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		wOwner, _, found, err := a.getWriter(ctx, executor, key)
		if err != nil || !found || wOwner != owner {
			return err
		}

		released = true

		return a.deleteWriter(ctx, executor, key)
	})

	return released, err
}

func (a *SharedLockAdapter) ReleaseReader(ctx context.Context, key, slotID string) (bool, error) {
	released := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, slots, found, err := a.getReaderGroup(ctx, executor, key)
		if err != nil || !found {
			return err
		}

		present := false
		for _, s := range slots {
			if s.ID == slotID {
				present = true
				break
			}
		}
		if !present {
			return nil
		}

		released = true

		if err := a.deleteReaderSlot(ctx, executor, key, slotID); err != nil {
			return err
		}

		if len(slots) == 1 {
			return a.deleteReaderGroup(ctx, executor, key)
		}

		return nil
	})

	return released, err
}

func (a *SharedLockAdapter) ForceReleaseAllReaders(ctx context.Context, key string) (bool, error) {
	released := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, _, found, err := a.getReaderGroup(ctx, executor, key)
		if err != nil || !found {
			return err
		}

		released = true

		return a.deleteReaderGroup(ctx, executor, key)
	})

	return released, err
}

func (a *SharedLockAdapter) RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		wOwner, wExpiration, found, err := a.getWriter(ctx, executor, key)
		if err != nil || !found || wOwner != owner || !wExpiration.Valid {
			return err
		}

		refreshed = true
		newExpiration := toMillisPtr(ptrTime(time.Now().Add(ttl)))

		return a.upsertWriter(ctx, executor, key, owner, newExpiration)
	})

	return refreshed, err
}

func (a *SharedLockAdapter) RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, slots, found, err := a.getReaderGroup(ctx, executor, key)
		if err != nil || !found {
			return err
		}

		for _, s := range slots {
			if s.ID == slotID {
				if !s.Expiration.Valid {
					return nil
				}
				refreshed = true
				newExpiration := toMillisPtr(ptrTime(time.Now().Add(ttl)))
				return a.upsertReaderSlot(ctx, executor, key, slotID, newExpiration)
			}
		}

		return nil
	})

	return refreshed, err
}

func (a *SharedLockAdapter) GetState(ctx context.Context, key string) (sharedlock.State, error) {
	var state sharedlock.State

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		wOwner, wExpiration, wFound, err := a.getWriter(ctx, executor, key)
		if err != nil {
			return err
		}
		if wFound && !expired(wExpiration, now) {
			state = sharedlock.State{Mode: sharedlock.Writer, WriterOwner: wOwner, WriterExpiration: fromMillisPtr(wExpiration)}
			return nil
		}

		limit, slots, rFound, err := a.getReaderGroup(ctx, executor, key)
		if err != nil {
			return err
		}
		if !rFound {
			state = sharedlock.State{Mode: sharedlock.None}
			return nil
		}

		live := liveReaderSlots(slots, now)
		if len(live) == 0 {
			state = sharedlock.State{Mode: sharedlock.None}
			return nil
		}

		result := sharedlock.State{Mode: sharedlock.Readers, Limit: limit}
		for _, s := range live {
			result.Slots = append(result.Slots, sharedlock.Slot{ID: s.ID, Expiration: fromMillisPtr(s.Expiration)})
		}
		state = result

		return nil
	})

	return state, err
}

var _ sharedlock.RichAdapter = (*SharedLockAdapter)(nil)
