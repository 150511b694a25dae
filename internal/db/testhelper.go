package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestCache opens a hardened SQLite pool in t.TempDir(), runs all
// pending migrations, and registers cleanup.
func OpenTestCache(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := OpenCache(filepath.Join(t.TempDir(), "cache.sqlite"), 4)
	if err != nil {
		t.Fatalf("open test cache: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return sqlDB
}
