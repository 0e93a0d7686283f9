package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures a [BadgerCache].
type BadgerConfig struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in RAM, for tests.
	InMemory bool
	// Logger receives BadgerDB's own messages. Nil silences them.
	Logger *log.Logger
}

// BadgerCache stores entries in an embedded BadgerDB. Expiry uses Badger's
// native per-entry TTL.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens or creates the database.
func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("badger cache: directory is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("badger cache: create %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger cache: open: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (b *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (b *BadgerCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerCache) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerCache) Clear(context.Context) error {
	return b.db.DropAll()
}

func (b *BadgerCache) Close() error {
	return b.db.Close()
}

// badgerLogger routes Badger's printf-style logging to a charm logger.
type badgerLogger struct{ l *log.Logger }

func (b badgerLogger) Errorf(format string, args ...any)   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...any)    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.l.Debugf(format, args...) }

var (
	_ Cache   = (*BadgerCache)(nil)
	_ Clearer = (*BadgerCache)(nil)
)
