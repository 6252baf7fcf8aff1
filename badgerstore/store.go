// Package badgerstore keeps cached artifacts in a BadgerDB database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/absfs/cachetee"
)

// keyPrefix namespaces entries so the database can be shared.
const keyPrefix = "cachetee/"

// Store implements cachetee.Store on BadgerDB.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

var _ cachetee.Store = (*Store)(nil)

// Open opens (or creates) a database in dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("badgerstore: data dir is empty")
	}
	return open(badgerdb.DefaultOptions(dir), logger)
}

// OpenInMemory opens a database that lives only as long as the Store.
func OpenInMemory(logger *zap.Logger) (*Store, error) {
	return open(badgerdb.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badgerdb.Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.WithLogger(badgerLogger{logger.Sugar()})
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Get reads the entry for key.
func (s *Store) Get(ctx context.Context, key string) (cachetee.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cachetee.Entry{}, false, err
	}
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return cachetee.Entry{}, false, nil
	}
	if err != nil {
		return cachetee.Entry{}, false, err
	}
	entry, err := cachetee.DecodeEntry(value)
	if err != nil {
		return cachetee.Entry{}, false, err
	}
	return entry, true, nil
}

// Put stores e under key.
func (s *Store) Put(ctx context.Context, key string, e cachetee.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := cachetee.EncodeEntry(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(dbKey(key), value)
	})
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		k := dbKey(key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return cachetee.ErrNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func dbKey(key string) []byte {
	return []byte(keyPrefix + key)
}

// badgerLogger routes Badger's logging into zap.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }
