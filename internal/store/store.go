// Package store persists the soil/pest/scheme domain reference data and
// farmer profiles behind a single SQLite database, per SPEC_FULL.md §11.
// Every read/write is a single round-trip per call; spec §5 requires no
// cross-call locking beyond the driver's own connection handling.
package store

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlx connection shared by the Soil/Pest/Scheme/Profile stores.
type DB struct {
	*sqlx.DB
}

// Open connects to the SQLite database at dsn (a file path, or ":memory:"
// for tests) and applies any pending migrations.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", dsn, err)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &DB{DB: conn}, nil
}

func migrateUp(conn *sqlx.DB) error {
	driver, err := sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("build migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
