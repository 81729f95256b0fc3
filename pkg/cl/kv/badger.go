package kv

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/cliossg/formkit/pkg/cl/logger"
)

// BadgerConfig configures the embedded BadgerDB store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Badger stores values in an embedded BadgerDB. It is a lifecycle component:
// Start opens the database and Stop closes it.
type Badger struct {
	cfg BadgerConfig
	db  *badger.DB
	log logger.Logger
}

// NewBadger creates a Badger store. Call Start before use.
func NewBadger(cfg BadgerConfig, log logger.Logger) *Badger {
	return &Badger{cfg: cfg, log: log}
}

// badgerLogger adapts logger.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }

func (b *Badger) Start(ctx context.Context) error {
	if !b.cfg.InMemory && b.cfg.Path == "" {
		return errors.New("badger path is required for a persistent store")
	}

	var opts badger.Options
	if b.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(b.cfg.Path, 0750); err != nil {
			return fmt.Errorf("cannot create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(b.cfg.Path)
	}
	opts = opts.WithSyncWrites(b.cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: b.log})

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("cannot open badger store: %w", err)
	}
	b.db = db
	b.log.Infof("Badger store opened (in_memory=%t)", b.cfg.InMemory)
	return nil
}

func (b *Badger) Stop(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	b.log.Info("Closing badger store")
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *Badger) Get(_ context.Context, key string) (string, bool, error) {
	if b.db == nil {
		return "", false, errors.New("badger store not started")
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cannot read key %s: %w", key, err)
	}
	return string(value), true, nil
}

func (b *Badger) Set(_ context.Context, key, value string) error {
	if b.db == nil {
		return errors.New("badger store not started")
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("cannot write key %s: %w", key, err)
	}
	return nil
}
