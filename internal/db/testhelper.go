package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite creates the sample dataset in t.TempDir() and returns a
// write pool and a query-only read pool over it. Both are closed on cleanup.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.db")

	writeDB, readDB, err := OpenSQLitePair(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if _, err := RunMigrations(context.Background(), writeDB, DialectSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return writeDB, readDB
}

// TestSQLitePath creates the sample dataset in t.TempDir() and returns the
// file path. The write pool is closed before returning.
func TestSQLitePath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.db")
	writeDB, err := OpenSQLite(path, "write", 0)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	defer writeDB.Close() //nolint:errcheck

	if _, err := RunMigrations(context.Background(), writeDB, DialectSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return path
}
