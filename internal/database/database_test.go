package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunMigrations_MissingDirectory(t *testing.T) {
	db := &DB{}
	err := db.RunMigrations(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected an error for a missing migrations directory")
	}
	if !strings.Contains(err.Error(), "migrations directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestMigrationFiles checks that every up migration has a matching down file.
func TestMigrationFiles(t *testing.T) {
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		ups++
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		if _, err := os.Stat(filepath.Join(dir, down)); err != nil {
			t.Errorf("%s has no matching %s", name, down)
		}
	}
	if ups == 0 {
		t.Error("no up migrations found")
	}
}

func TestDocumentLoadsMigrationCreatesTable(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_create_document_loads.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(data)
	for _, col := range []string{"session_id", "kind", "source", "page_count", "fragment_count", "status", "duration_ms", "created_at"} {
		if !strings.Contains(sql, col) {
			t.Errorf("migration is missing column %q", col)
		}
	}
}
