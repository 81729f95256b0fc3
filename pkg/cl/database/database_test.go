package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

func TestStartRunsMigrationsAndStop(t *testing.T) {
	fsys := fstest.MapFS{
		"assets/migrations/sqlite/20260101000000-create-kv.sql": {Data: []byte(
			"-- +migrate Up\nCREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);\n")},
	}

	cfg := config.Defaults("dev")
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "formkit.db")

	db := New(fsys, cfg, logger.NewNoopLogger())
	ctx := context.Background()

	if err := db.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := db.GetDB().ExecContext(ctx, "INSERT INTO kv (key, value) VALUES ('k', 'v')"); err != nil {
		t.Errorf("kv table missing after Start(): %v", err)
	}

	if err := db.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	db := New(fstest.MapFS{}, config.Defaults("dev"), logger.NewNoopLogger())
	if err := db.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestStartFailsOnBrokenMigration(t *testing.T) {
	fsys := fstest.MapFS{
		"assets/migrations/sqlite/20260101000000-broken.sql": {Data: []byte("-- +migrate Up\nNOT SQL;\n")},
	}

	cfg := config.Defaults("dev")
	cfg.Database.Path = filepath.Join(t.TempDir(), "formkit.db")

	db := New(fsys, cfg, logger.NewNoopLogger())
	if err := db.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when a migration cannot be applied")
	}
	if db.GetDB() != nil {
		t.Error("GetDB() should be nil after a failed Start()")
	}
}
