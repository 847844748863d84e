package sqladapter

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSharedLockAdapter_AcquireWriterOnFreshKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner, expiration FROM writer_lock`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT "limit" FROM reader_semaphore`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO writer_lock`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	adapter := NewSharedLockAdapter(db)

	ok, err := adapter.AcquireWriter(context.Background(), "k", "w1", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedLockAdapter_AcquireWriterFailsWhenReaderLive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner, expiration FROM writer_lock`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT "limit" FROM reader_semaphore`).
		WillReturnRows(sqlmock.NewRows([]string{"limit"}).AddRow(2))
	mock.ExpectQuery(`SELECT id, expiration FROM reader_semaphore_slot`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expiration"}).AddRow("s1", nil))
	mock.ExpectCommit()

	adapter := NewSharedLockAdapter(db)

	ok, err := adapter.AcquireWriter(context.Background(), "k", "w1", nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedLockAdapter_ReleaseWriterByNonOwnerFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner, expiration FROM writer_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"owner", "expiration"}).AddRow("w1", nil))
	mock.ExpectCommit()

	adapter := NewSharedLockAdapter(db)

	ok, err := adapter.ReleaseWriter(context.Background(), "k", "intruder")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
