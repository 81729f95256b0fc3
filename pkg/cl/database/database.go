package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/migrate"
)

// Database owns the SQLite file backing the sqlite kv store.
type Database struct {
	DB         *sql.DB
	migrations fs.FS
	dir        string
	path       string
	log        logger.Logger
}

// New creates a Database for cfg.Database.Path migrated from the sqlite
// files in migrations.
func New(migrations fs.FS, cfg *config.Config, log logger.Logger) *Database {
	return &Database{
		migrations: migrations,
		path:       cfg.Database.Path,
		log:        log,
	}
}

// SetMigrationPath overrides the directory holding the migration files.
func (d *Database) SetMigrationPath(dir string) {
	d.dir = dir
}

// Start opens the database file, creating its directory, and applies
// pending migrations.
func (d *Database) Start(ctx context.Context) error {
	if d.DB != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(d.path))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("cannot ping database: %w", err)
	}

	m := migrate.New(d.migrations, "sqlite", d.log)
	if d.dir != "" {
		m.SetPath(d.dir)
	}
	m.SetDB(db)
	if err := m.Run(ctx); err != nil {
		db.Close()
		return fmt.Errorf("cannot migrate %s: %w", d.path, err)
	}

	d.DB = db
	d.log.Infof("Database ready: %s", d.path)
	return nil
}

func (d *Database) Stop(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	d.log.Info("Closing database")
	err := d.DB.Close()
	d.DB = nil
	return err
}

// GetDB returns the open connection pool, nil before Start.
func (d *Database) GetDB() *sql.DB {
	return d.DB
}

// WAL keeps snapshot writes from blocking concurrent readers
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}
