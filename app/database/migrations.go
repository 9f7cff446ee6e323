package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var eventSchema embed.FS

// ErrDirtySchema means a previous migration of the events schema stopped
// half way. The operator has to repair the table and force the version.
var ErrDirtySchema = errors.New("events schema is dirty")

func newMigrator(db *DB) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open events schema driver: %w", err)
	}

	source, err := iofs.New(eventSchema, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded events schema: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}

// RunMigrations brings the events schema up to date and returns the applied
// version.
func RunMigrations(db *DB) (uint, bool, error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return uint(dirty.Version), true, fmt.Errorf("%w at version %d", ErrDirtySchema, dirty.Version)
		}
		return 0, false, fmt.Errorf("failed to migrate events schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read events schema version: %w", err)
	}
	return version, dirty, nil
}
