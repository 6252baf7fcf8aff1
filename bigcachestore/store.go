// Package bigcachestore keeps cached artifacts in process memory using
// BigCache. Entries expire after the configured life window.
package bigcachestore

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/absfs/cachetee"
)

// Store implements cachetee.Store on a BigCache instance.
type Store struct {
	cache *bigcache.BigCache
}

var _ cachetee.Store = (*Store)(nil)

// Option adjusts the BigCache configuration.
type Option func(*bigcache.Config)

// WithHardMaxCacheSize caps the cache at mb megabytes. 0 means no cap.
func WithHardMaxCacheSize(mb int) Option {
	return func(c *bigcache.Config) {
		c.HardMaxCacheSize = mb
	}
}

// WithShards sets the number of shards. It must be a power of two.
func WithShards(n int) Option {
	return func(c *bigcache.Config) {
		c.Shards = n
	}
}

// WithMaxEntriesInWindow sets the expected number of entries. Together with
// the entry size it decides how much memory is preallocated.
func WithMaxEntriesInWindow(n int) Option {
	return func(c *bigcache.Config) {
		c.MaxEntriesInWindow = n
	}
}

// WithMaxEntrySize sets the expected entry size in bytes.
func WithMaxEntrySize(size int) Option {
	return func(c *bigcache.Config) {
		c.MaxEntrySize = size
	}
}

// WithCleanWindow sets how often expired entries are removed.
func WithCleanWindow(d time.Duration) Option {
	return func(c *bigcache.Config) {
		c.CleanWindow = d
	}
}

// New creates a Store whose entries live for lifeWindow. ctx bounds the
// background cleanup goroutine.
func New(ctx context.Context, lifeWindow time.Duration, opts ...Option) (*Store, error) {
	config := bigcache.DefaultConfig(lifeWindow)
	config.Verbose = false
	for _, opt := range opts {
		opt(&config)
	}
	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache}, nil
}

// Get reads the entry for key.
func (s *Store) Get(ctx context.Context, key string) (cachetee.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cachetee.Entry{}, false, err
	}
	value, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
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
	return s.cache.Set(key, value)
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return cachetee.ErrNotFound
	}
	return err
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine and releases memory.
func (s *Store) Close() error {
	return s.cache.Close()
}
