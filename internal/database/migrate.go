package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// SchemaVersion is the migration version this build expects. Stores at an
// older or dirty version are dropped and recreated.
const SchemaVersion = 1

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dropped lists every table owned by the schema, in drop order.
var dropped = []string{
	"contacts",
	sqlite3.DefaultMigrationsTable,
}

// Migrate brings db to SchemaVersion. A fresh store is created from the
// embedded migrations; an outdated or dirty one is wiped first.
func Migrate(db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	var seq int64
	ver, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("creating schema", "version", SchemaVersion)
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty || ver < SchemaVersion:
		logger.Warn("schema outdated, recreating", "from", ver, "dirty", dirty, "to", SchemaVersion)
		if seq, err = reset(db); err != nil {
			return err
		}
		// the version table is gone; a fresh migrator recreates it
		if m, err = newMigrator(db); err != nil {
			return err
		}
	case ver > SchemaVersion:
		return fmt.Errorf("schema version %d is newer than supported %d", ver, SchemaVersion)
	}

	if err := m.Migrate(SchemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate to %d: %w", SchemaVersion, err)
	}
	if seq > 0 {
		if _, err := db.Exec(`INSERT INTO sqlite_sequence(name, seq) VALUES ('contacts', ?)`, seq); err != nil {
			return fmt.Errorf("restore id sequence: %w", err)
		}
	}
	return nil
}

// newMigrator builds a migrator over db. It is never closed: closing the
// sqlite3 driver would close db as well.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("new migrator: %w", err)
	}
	return m, nil
}

// reset drops every schema table and returns the last id handed out for
// contacts. Dropping an AUTOINCREMENT table clears its sqlite_sequence row,
// so the caller restores it to keep ids from being reused.
func reset(db *sql.DB) (int64, error) {
	var seq int64
	err := WithTx(db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sqlite_sequence'`).Scan(&n); err != nil {
			return fmt.Errorf("probe sqlite_sequence: %w", err)
		}
		if n > 0 {
			err := tx.QueryRow(`SELECT seq FROM sqlite_sequence WHERE name = 'contacts'`).Scan(&seq)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("read id sequence: %w", err)
			}
		}
		for _, t := range dropped {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + t); err != nil {
				return fmt.Errorf("drop %s: %w", t, err)
			}
		}
		return nil
	})
	return seq, err
}
