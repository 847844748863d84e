// Package sqlstore embeds the table family spec.md §6 names for the
// SQL backend (cache, lock, semaphore/semaphoreSlot, writerLock,
// readerSemaphore/readerSemaphoreSlot) and exposes them as a
// golang-migrate source.Driver, mirroring
// common/mpostgres.Connect's migrate.NewWithDatabaseInstance use
// against a filesystem migrations directory — adapted here to an
// embedded one so the library ships its own schema rather than
// depending on the consuming application's working directory.
package sqlstore

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationSource builds a fresh golang-migrate source.Driver over
// the embedded coordination-primitive schema. Each PostgresConnection
// needs its own instance since migrate.Migrate closes the source.
func MigrationSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}
