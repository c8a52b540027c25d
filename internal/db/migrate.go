package db

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// auditDialects maps the audit log drivers to goose dialects.
var auditDialects = map[string]string{
	"sqlite": "sqlite3",
	"pgx":    "postgres",
}

func dialectFor(driver string) (string, error) {
	dialect, ok := auditDialects[driver]
	if !ok {
		return "", fmt.Errorf("audit log: unsupported driver %q (want sqlite or pgx)", driver)
	}
	return dialect, nil
}

func setupGoose(driver string) error {
	dialect, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations directory: %w", err)
	}
	goose.SetBaseFS(migrationsDir)
	return nil
}

// RunMigrations brings the moderation_events schema up to date.
func RunMigrations(db *sql.DB, driver string) error {
	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to migrate audit log: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read audit log version: %w", err)
	}
	slog.Info("audit log schema ready", "driver", driver, "version", version)
	return nil
}

// MigrationVersion returns the current audit log schema version.
func MigrationVersion(db *sql.DB, driver string) (int64, error) {
	if err := setupGoose(driver); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit log version: %w", err)
	}
	return version, nil
}

// MigrateDown rolls the audit log back by one migration. Recorded events are
// lost when the moderation_events table is dropped.
func MigrateDown(db *sql.DB, driver string) error {
	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Down(db, "."); err != nil {
		return fmt.Errorf("failed to roll back audit log: %w", err)
	}
	slog.Warn("audit log rolled back one migration", "driver", driver)
	return nil
}
