package sqladapter

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreAdapter_AcquireOnFreshKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "limit" FROM semaphore`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO semaphore`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO semaphore_slot`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	adapter := NewSemaphoreAdapter(db)

	ok, err := adapter.Acquire(context.Background(), "k", "s1", 2, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemaphoreAdapter_AcquireBeyondLimitFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "limit" FROM semaphore`).
		WillReturnRows(sqlmock.NewRows([]string{"limit"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, expiration FROM semaphore_slot`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expiration"}).AddRow("s1", nil))
	mock.ExpectCommit()

	adapter := NewSemaphoreAdapter(db)

	ok, err := adapter.Acquire(context.Background(), "k", "s2", 1, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemaphoreAdapter_AcquireLimitMismatchFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "limit" FROM semaphore`).
		WillReturnRows(sqlmock.NewRows([]string{"limit"}).AddRow(3))
	mock.ExpectQuery(`SELECT id, expiration FROM semaphore_slot`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expiration"}).AddRow("s1", nil))
	mock.ExpectRollback()

	adapter := NewSemaphoreAdapter(db)

	_, err = adapter.Acquire(context.Background(), "k", "s2", 5, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
