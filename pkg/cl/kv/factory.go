package kv

import (
	"fmt"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

// New returns the Store selected by the configured backend. A Badger store must
// still be started by the caller; the sqlite store needs dbProvider started first.
func New(cfg config.StoreConfig, dbProvider DBProvider, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendSQLite:
		return NewSQLite(dbProvider), nil
	case config.BackendBadger:
		return NewBadger(BadgerConfig{Path: cfg.Path, SyncWrites: cfg.SyncWrites}, log), nil
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
