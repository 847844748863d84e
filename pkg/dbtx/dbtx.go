// Package dbtx carries a *sql.Tx through context.Context so database
// adapters (spec §4.1's "database adapter") can run their CRUD
// primitives either standalone or nested inside a caller's
// transaction without threading a transaction parameter through every
// call. Grounded on the teacher's pkg/dbtx fixture.
package dbtx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// Executor is the subset of *sql.DB and *sql.Tx that query builders
// need: squirrel's RunWith accepts exactly this shape.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContextWithTx returns a copy of ctx carrying tx. A nil tx is stored
// as-is; TxFromContext on the result still returns nil.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the *sql.Tx stored by ContextWithTx, or nil if
// ctx carries none.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction in ctx if one is present,
// otherwise falls back to db. Database adapter CRUD primitives call
// this once per operation so they work both standalone and nested
// inside RunInTransaction.
func GetExecutor(ctx context.Context, db *sql.DB) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// RunInTransaction begins a transaction on db, runs fn with a context
// carrying it, and commits on success or rolls back on error or
// panic. A panic inside fn propagates after the rollback, matching
// the teacher's fixture.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := ContextWithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}
