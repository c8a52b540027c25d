package db

import (
	"strings"
	"testing"
)

func TestMigrationsCreateAuditLog(t *testing.T) {
	conn, err := Init("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Close(conn) })

	if err := RunMigrations(conn.DB, "sqlite"); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	version, err := MigrationVersion(conn.DB, "sqlite")
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if _, err := conn.Exec("SELECT count(*) FROM moderation_events"); err != nil {
		t.Errorf("moderation_events missing: %v", err)
	}

	if err := MigrateDown(conn.DB, "sqlite"); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if _, err := conn.Exec("SELECT count(*) FROM moderation_events"); err == nil {
		t.Error("moderation_events still present after rollback")
	}
}

func TestMigrationsRejectUnknownDriver(t *testing.T) {
	conn, err := Init("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Close(conn) })

	err = RunMigrations(conn.DB, "mysql")
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("RunMigrations(mysql) = %v, want unsupported driver", err)
	}
}
