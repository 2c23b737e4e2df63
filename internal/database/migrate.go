package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// Register the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/GyroZepelix/mithril-studio/migrations"
)

// MigrationStatus reports the schema version of a database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// RunMigrations applies all pending up migrations embedded in the binary.
func RunMigrations(databaseURL string) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(databaseURL string, steps int) error {
	if steps < 1 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rolling back migrations: %w", err)
		}
		return nil
	})
}

// CurrentMigration returns the applied schema version. A database with no
// migrations applied reports version 0.
func CurrentMigration(databaseURL string) (MigrationStatus, error) {
	var status MigrationStatus
	err := withMigrator(databaseURL, func(m *migrate.Migrate) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading migration version: %w", err)
		}
		status = MigrationStatus{Version: v, Dirty: dirty}
		return nil
	})
	return status, err
}

func withMigrator(databaseURL string, fn func(*migrate.Migrate) error) (retErr error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if retErr == nil {
			if sourceErr != nil {
				retErr = fmt.Errorf("closing migration source: %w", sourceErr)
			} else if dbErr != nil {
				retErr = fmt.Errorf("closing migration database: %w", dbErr)
			}
		}
	}()

	return fn(m)
}
