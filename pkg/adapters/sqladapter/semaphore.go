package sqladapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/lerian-oss/coord/pkg/dbtx"
	"github.com/lerian-oss/coord/pkg/semaphore"
)

// SemaphoreAdapter is the semaphore.RichAdapter backed by the
// semaphore/semaphore_slot table pair, the counting-only sibling of
// SharedLockAdapter's reader_semaphore tables.
type SemaphoreAdapter struct {
	db *sql.DB
}

// NewSemaphoreAdapter builds a SemaphoreAdapter over db.
func NewSemaphoreAdapter(db *sql.DB) *SemaphoreAdapter {
	return &SemaphoreAdapter{db: db}
}

func (a *SemaphoreAdapter) getGroup(ctx context.Context, executor dbtx.Executor, key string) (limit int, slots []readerSlotRow, found bool, err error) {
	groupQuery, groupArgs, err := statementBuilder.Select(`"limit"`).
		From("semaphore").
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
		From("semaphore_slot").
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

func (a *SemaphoreAdapter) deleteGroup(ctx context.Context, executor dbtx.Executor, key string) error {
	query, args, err := statementBuilder.Delete("semaphore").Where("key = ?", key).ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SemaphoreAdapter) insertGroup(ctx context.Context, executor dbtx.Executor, key string, limit int) error {
	query, args, err := statementBuilder.Insert("semaphore").
		Columns("key", `"limit"`).
		Values(key, limit).
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SemaphoreAdapter) upsertSlot(ctx context.Context, executor dbtx.Executor, key, slotID string, expiration sql.NullInt64) error {
	query, args, err := statementBuilder.Insert("semaphore_slot").
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

func (a *SemaphoreAdapter) deleteSlot(ctx context.Context, executor dbtx.Executor, key, slotID string) error {
	query, args, err := statementBuilder.Delete("semaphore_slot").
		Where("key = ? AND id = ?", key, slotID).
		ToSql()
	if err != nil {
		return err
	}
	_, err = executor.ExecContext(ctx, query, args...)
	return err
}

func (a *SemaphoreAdapter) Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	acquired := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		var expiration sql.NullInt64
		if ttl != nil {
			expiration = toMillisPtr(ptrTime(now.Add(*ttl)))
		}

		establishedLimit, slots, found, err := a.getGroup(ctx, executor, key)
		if err != nil {
			return err
		}

		if !found {
			acquired = true
			if err := a.insertGroup(ctx, executor, key, limit); err != nil {
				return err
			}
			return a.upsertSlot(ctx, executor, key, slotID, expiration)
		}

		live := liveReaderSlots(slots, now)
		if len(live) == 0 {
			if err := a.deleteGroup(ctx, executor, key); err != nil {
				return err
			}
			acquired = true
			if err := a.insertGroup(ctx, executor, key, limit); err != nil {
				return err
			}
			return a.upsertSlot(ctx, executor, key, slotID, expiration)
		}

		if establishedLimit != limit {
			return semaphore.LimitMismatchErr{Established: establishedLimit, Requested: limit}
		}

		for _, s := range live {
			if s.ID == slotID {
				acquired = true
				return a.upsertSlot(ctx, executor, key, slotID, expiration)
			}
		}

		if len(live) >= establishedLimit {
			return nil
		}

		acquired = true

		return a.upsertSlot(ctx, executor, key, slotID, expiration)
	})

	return acquired, err
}

func (a *SemaphoreAdapter) Release(ctx context.Context, key, slotID string) (bool, error) {
	released := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, slots, found, err := a.getGroup(ctx, executor, key)
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

		if err := a.deleteSlot(ctx, executor, key, slotID); err != nil {
			return err
		}

		if len(slots) == 1 {
			return a.deleteGroup(ctx, executor, key)
		}

		return nil
	})

	return released, err
}

func (a *SemaphoreAdapter) ForceReleaseAll(ctx context.Context, key string) (bool, error) {
	released := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, _, found, err := a.getGroup(ctx, executor, key)
		if err != nil || !found {
			return err
		}

		released = true

		return a.deleteGroup(ctx, executor, key)
	})

	return released, err
}

func (a *SemaphoreAdapter) Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	refreshed := false

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)

		_, slots, found, err := a.getGroup(ctx, executor, key)
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
				return a.upsertSlot(ctx, executor, key, slotID, newExpiration)
			}
		}

		return nil
	})

	return refreshed, err
}

func (a *SemaphoreAdapter) GetState(ctx context.Context, key string) (semaphore.State, error) {
	var state semaphore.State

	err := withTransaction(ctx, a.db, func(ctx context.Context) error {
		executor := dbtx.GetExecutor(ctx, a.db)
		now := time.Now()

		limit, slots, found, err := a.getGroup(ctx, executor, key)
		if err != nil || !found {
			return err
		}

		live := liveReaderSlots(slots, now)
		if len(live) == 0 {
			return nil
		}

		result := semaphore.State{Limit: limit}
		for _, s := range live {
			result.Slots = append(result.Slots, semaphore.Slot{ID: s.ID, Expiration: fromMillisPtr(s.Expiration)})
		}
		state = result

		return nil
	})

	return state, err
}

var _ semaphore.RichAdapter = (*SemaphoreAdapter)(nil)
