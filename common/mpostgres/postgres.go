package mpostgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/lerian-oss/coord/common/mlog"
)

// PostgresConnection is a hub which deals with postgres connections.
type PostgresConnection struct {
	ConnectionStringSource string
	DatabaseName           string
	// MigrationSource, when set, is applied by Connect before the
	// connection is handed back, via golang-migrate. Callers that
	// manage their own schema leave this nil.
	MigrationSource source.Driver
	DB              *sql.DB
	Connected       bool
	Logger          mlog.Logger
}

// Connect keeps a singleton connection with postgres.
func (pc *PostgresConnection) Connect(ctx context.Context) error {
	pc.Logger.Info("Connecting to postgres...")

	db, err := sql.Open("pgx", pc.ConnectionStringSource)
	if err != nil {
		pc.Logger.Infof("failed to open connection to postgres %v", zap.Error(err))
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		pc.Logger.Infof("PostgresConnection.Ping %v", zap.Error(err))
		return err
	}

	if pc.MigrationSource != nil {
		if err := pc.migrate(db); err != nil {
			return err
		}
	}

	pc.Logger.Info("Connected to postgres ✅ \n")

	pc.Connected = true
	pc.DB = db

	return nil
}

func (pc *PostgresConnection) migrate(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          pc.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", pc.MigrationSource, pc.DatabaseName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// GetDB returns a pointer to the postgres connection, initializing it if necessary.
func (pc *PostgresConnection) GetDB(ctx context.Context) (*sql.DB, error) {
	if pc.DB == nil {
		if err := pc.Connect(ctx); err != nil {
			pc.Logger.Infof("ERRCONECT %s", err)
			return nil, err
		}
	}

	return pc.DB, nil
}
