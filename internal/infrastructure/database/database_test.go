package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xpresstask/core/internal/infrastructure/config"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigratorUpAndDown(t *testing.T) {
	db := newMemoryDB(t)

	m, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("new migrator: %v", err)
	}

	if _, _, ok, err := m.Version(); err != nil || ok {
		t.Fatalf("expected no version before up, ok=%v err=%v", ok, err)
	}

	if err := m.Up(); err != nil {
		t.Fatalf("up: %v", err)
	}
	// A second run is a no-op.
	if err := m.Up(); err != nil {
		t.Fatalf("second up: %v", err)
	}

	version, dirty, ok, err := m.Version()
	if err != nil || !ok {
		t.Fatalf("version: ok=%v err=%v", ok, err)
	}
	if version != 1 || dirty {
		t.Fatalf("expected clean version 1, got %d dirty=%v", version, dirty)
	}

	var tables int
	if err := db.DB.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'tasks')`); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 2 {
		t.Fatalf("expected users and tasks tables, got %d", tables)
	}

	if err := m.Down(); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := db.DB.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'tasks')`); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected tables to be dropped, got %d", tables)
	}
}

func TestNewCreatesSQLiteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xpresstask.db")
	db, err := New(config.DatabaseConfig{Driver: "sqlite3", Path: path})
	if err != nil {
		t.Fatalf("open sqlite file: %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
	if db.GetConnectionInfo()["max_open_connections"] != 1 {
		t.Fatalf("expected sqlite pool to be capped at one connection")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
