package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DBProvider provides access to the database.
type DBProvider interface {
	GetDB() *sql.DB
}

// SQLite stores values in the kv table created by the sqlite migrations.
type SQLite struct {
	dbProvider DBProvider
}

// NewSQLite creates a SQLite-backed store. The database is resolved on first use,
// so the provider may be started after construction.
func NewSQLite(dbProvider DBProvider) *SQLite {
	return &SQLite{dbProvider: dbProvider}
}

func (s *SQLite) db() (*sql.DB, error) {
	if s.dbProvider == nil || s.dbProvider.GetDB() == nil {
		return nil, errors.New("database not started")
	}
	return s.dbProvider.GetDB(), nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	db, err := s.db()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cannot read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	db, err := s.db()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cannot write key %s: %w", key, err)
	}
	return nil
}
