package sqladapter

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLockAdapter_RemoveAllExpiredDeletesExpiredRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM lock WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	adapter := NewLockAdapter(db)

	n, err := adapter.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheAdapter_RemoveAllExpiredDeletesExpiredRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM cache WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	adapter := NewCacheAdapter(db)

	n, err := adapter.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemaphoreAdapter_RemoveAllExpiredPrunesEmptyGroups(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM semaphore_slot WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM semaphore WHERE key NOT IN`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	adapter := NewSemaphoreAdapter(db)

	n, err := adapter.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedLockAdapter_RemoveAllExpiredCombinesWriterAndReaderCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM writer_lock WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM reader_semaphore_slot WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM reader_semaphore WHERE key NOT IN`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	adapter := NewSharedLockAdapter(db)

	n, err := adapter.RemoveAllExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
