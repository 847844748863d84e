package dbtx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestContextWithTx_NilTx(t *testing.T) {
	ctx := ContextWithTx(context.Background(), nil)
	if TxFromContext(ctx) != nil {
		t.Fatal("expected nil tx")
	}
}

func TestTxFromContext_NoTx(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Fatal("expected nil tx from bare context")
	}
}

func TestContextWithTx_RoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ContextWithTx(context.Background(), tx)
	if TxFromContext(ctx) != tx {
		t.Fatal("expected the same tx back out")
	}

	mock.ExpectRollback()
	_ = tx.Rollback()
}

func TestGetExecutor_PrefersContextTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ContextWithTx(context.Background(), tx)
	if _, ok := GetExecutor(ctx, db).(*sql.Tx); !ok {
		t.Fatal("expected *sql.Tx executor")
	}

	mock.ExpectRollback()
	_ = tx.Rollback()
}

func TestGetExecutor_FallsBackToDB(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	if _, ok := GetExecutor(context.Background(), db).(*sql.DB); !ok {
		t.Fatal("expected *sql.DB executor")
	}
}

func TestRunInTransaction_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	called := false
	err = RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		called = true
		if TxFromContext(ctx) == nil {
			t.Fatal("expected tx in context")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !called {
		t.Fatal("expected fn to be called")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	want := errors.New("function error")
	err = RunInTransaction(context.Background(), db, func(ctx context.Context) error { return want })

	if !errors.Is(err, want) {
		t.Fatalf("got %v want %v", err, want)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunInTransaction_RollsBackOnBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	want := errors.New("begin error")
	mock.ExpectBegin().WillReturnError(want)

	err = RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		t.Fatal("fn should not be called")
		return nil
	})

	if !errors.Is(err, want) {
		t.Fatalf("got %v want %v", err, want)
	}
}

func TestRunInTransaction_PropagatesPanicAfterRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
	}()

	_ = RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		panic("boom")
	})
}
