// Package sqladapter implements every primitive's RichAdapter over a
// SQL database (spec §4.1's "database adapter", SPEC_FULL.md §7's
// table family), grounded on the teacher's
// components/ledger/internal/adapters/database/postgres package: each
// operation builds its statement with Masterminds/squirrel
// (`sqrl.Dollar` placeholders, matching
// asset.postgresql.go's `PlaceholderFormat(sqrl.Dollar)`), resolves its
// executor from pkg/dbtx so it runs standalone or nested inside a
// caller's transaction. Key conflicts are settled inside the SQL itself
// (ON CONFLICT clauses, SELECT ... FOR UPDATE); driver errors are
// returned unmapped.
//
// Expiration columns are BIGINT milliseconds-since-epoch (spec.md §6).
// Unlike some drivers, pgx returns BIGINT as a native int64, so no
// string normalization step is needed here; a MySQL-backed sibling
// adapter would need one.
package sqladapter

import (
	"context"
	"database/sql"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lerian-oss/coord/pkg/dbtx"
)

// statementBuilder is the shared squirrel builder, pinned to
// PostgreSQL's $N placeholder style.
var statementBuilder = sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar)

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func toMillisPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: epochMillis(*t), Valid: true}
}

func fromMillisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

// expired reports whether v (a nullable BIGINT expiration) is in the past.
func expired(v sql.NullInt64, now time.Time) bool {
	return v.Valid && v.Int64 <= epochMillis(now)
}

// withTransaction runs fn atomically. If ctx already carries a
// transaction (a caller composing several adapter calls into one
// unit of work), fn runs directly against it instead of nesting a new
// one, per pkg/dbtx's composition contract.
func withTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if dbtx.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return dbtx.RunInTransaction(ctx, db, fn)
}
