package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSourcesNewerThan(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "internal", "db", "migrations")
	if err := os.MkdirAll(migrations, 0o755); err != nil {
		t.Fatal(err)
	}
	sql := filepath.Join(migrations, "00002_event_notes.sql")
	notes := filepath.Join(dir, "internal", "README.md")
	for _, p := range []string{sql, notes} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	built := time.Now()
	old := built.Add(-time.Hour)
	if err := os.Chtimes(sql, old, old); err != nil {
		t.Fatal(err)
	}
	if sourcesNewerThan(built, filepath.Join(dir, "cmd"), filepath.Join(dir, "internal")) {
		t.Error("stale binary reported with only older sources and non-source edits")
	}

	newer := built.Add(time.Minute)
	if err := os.Chtimes(sql, newer, newer); err != nil {
		t.Fatal(err)
	}
	if !sourcesNewerThan(built, filepath.Join(dir, "cmd"), filepath.Join(dir, "internal")) {
		t.Error("migration edit after build not detected")
	}
}
