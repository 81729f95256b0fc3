package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cliossg/formkit/pkg/cl/kv"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/migrate"
)

const migrationsDir = "assets/migrations/sqlite"

// NewTestDB opens an in-memory SQLite database migrated with the project's
// schema files. The database is closed when the test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	dir := findMigrations()
	if dir == "" {
		t.Fatalf("cannot find %s from the test directory", migrationsDir)
	}

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("cannot open test database: %v", err)
	}
	// Each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	m := migrate.New(os.DirFS(dir), "sqlite", logger.NewNoopLogger())
	m.SetPath(".")
	m.SetDB(db)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("cannot migrate test database: %v", err)
	}
	return db
}

// NewTestStore returns a sqlite-backed kv store over a fresh migrated database.
func NewTestStore(t testing.TB) *kv.SQLite {
	t.Helper()
	return kv.NewSQLite(provider{db: NewTestDB(t)})
}

type provider struct {
	db *sql.DB
}

func (p provider) GetDB() *sql.DB {
	return p.db
}

// findMigrations walks up from the working directory to the module root.
func findMigrations() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, migrationsDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
