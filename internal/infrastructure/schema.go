package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/migration"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// EnsureDatabase creates the configured database when the catalog lookup
// finds nothing. CREATE DATABASE cannot run inside a transaction, so this
// goes through the maintenance database with plain autocommit statements.
// Safe to call repeatedly.
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := sql.Open("postgres", cfg.MaintenanceDSN())
	if err != nil {
		return fmt.Errorf("open maintenance connection: %w", err)
	}
	defer db.Close()

	var exists int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1", cfg.Name).Scan(&exists)
	if err == nil {
		logrus.Debugf("database %s already exists", cfg.Name)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check pg_catalog for %s: %w", cfg.Name, err)
	}

	_, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.Name))
	if err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Name, err)
	}

	logrus.Infof("database %s created", cfg.Name)
	return nil
}

// EnsureTables applies the embedded migrations. Idempotent; a failure here
// is fatal to startup, the server must not accept connections without a
// confirmed schema.
func EnsureTables(db *sqlx.DB, databaseName string) error {
	goose.SetBaseFS(migration.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "postgresql/"+databaseName, goose.WithAllowMissing()); err != nil {
		return fmt.Errorf("apply migrations for %s: %w", databaseName, err)
	}

	return nil
}
