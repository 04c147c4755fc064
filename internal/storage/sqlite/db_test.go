// ABOUTME: Tests for SQLite database connection and schema initialization
// ABOUTME: Verifies database creation, schema, pragmas, and default paths
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenInMemory(t *testing.T) {
	db := newTestDB(t)

	if db.Path() != ":memory:" {
		t.Errorf("Path() = %v, want :memory:", db.Path())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSchemaInitialization(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"collections", "examples"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_examples_collection", "idx_examples_category"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		if err != nil {
			t.Errorf("Index %s does not exist: %v", idx, err)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "radar.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestDefaultDBPath(t *testing.T) {
	path := DefaultDBPath()
	if filepath.Base(path) != "radar.db" {
		t.Errorf("DefaultDBPath() = %v, should end with radar.db", path)
	}
	if filepath.Base(filepath.Dir(path)) != "feedback-radar" {
		t.Errorf("DefaultDBPath() = %v, should live under feedback-radar", path)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t)

	var fkEnabled int
	if err := db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("Failed to check foreign_keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("Foreign keys are not enabled")
	}
}
