package cachetee

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
)

// Input is the per-file context that travels with a source through the
// adapter pipeline. The tee never looks at it; Cache only logs it.
type Input struct {
	Source Source

	// PathHint names the file the stream came from. For nested archive
	// members it is a synthetic path.
	PathHint string

	// Depth is the archive recursion depth, 0 for files on disk.
	Depth int

	// IsRealFile is false for streams produced by recursing into archives.
	IsRealFile bool
}

// Cache routes streams through a Store: hits are served from stored
// artifacts, misses are teed and persisted on EOF.
type Cache struct {
	store  Store
	config *Config
	logger *zap.Logger
	stats  Stats
}

// New creates a Cache over store. A nil config uses DefaultConfig.
func New(store Store, config *Config) (*Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Cache{
		store:  store,
		config: config,
		logger: config.logger(),
	}, nil
}

// Open returns the stream for key. On a hit it reads the stored artifact
// and closes in.Source unread. On a miss it tees in.Source and stores the
// artifact once the returned Source has been read to io.EOF.
func (c *Cache) Open(ctx context.Context, key string, in Input) (Source, error) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading from cache: %w", err)
	}

	if ok {
		atomic.AddInt64(&c.stats.Hits, 1)
		c.logger.Debug("cache hit",
			zap.String("key", key),
			zap.String("path", in.PathHint),
			zap.Int("depth", in.Depth))
		src, err := ArtifactSource(entry, c.config.bufferSize())
		if err != nil {
			return nil, err
		}
		if closer, ok := in.Source.(io.Closer); ok {
			_ = closer.Close()
		}
		return src, nil
	}

	atomic.AddInt64(&c.stats.Misses, 1)
	c.logger.Debug("cache miss",
		zap.String("key", key),
		zap.String("path", in.PathHint),
		zap.Int("depth", in.Depth),
		zap.Bool("real_file", in.IsRealFile))
	return NewTee(in.Source, c.config, c.finishFunc(key))
}

// OpenReader is Open over an io.Reader.
func (c *Cache) OpenReader(ctx context.Context, key string, r io.Reader, in Input) (io.ReadCloser, error) {
	in.Source = ReaderSource(r, c.config.bufferSize())
	src, err := c.Open(ctx, key, in)
	if err != nil {
		return nil, err
	}
	return NewReader(ctx, src), nil
}

func (c *Cache) finishFunc(key string) FinishFunc {
	persist := PersistTo(c.store, key, c.config)
	return func(ctx context.Context, res FinishResult) error {
		if res.Artifact == nil {
			atomic.AddInt64(&c.stats.Skipped, 1)
			return nil
		}
		if err := persist(ctx, res); err != nil {
			atomic.AddInt64(&c.stats.Failed, 1)
			c.logger.Warn("storing artifact failed", zap.String("key", key), zap.Error(err))
			return err
		}
		atomic.AddInt64(&c.stats.Stored, 1)
		atomic.AddInt64(&c.stats.BytesAdmitted, int64(res.BytesWritten))
		atomic.AddInt64(&c.stats.BytesCompressed, int64(len(res.Artifact)))
		return nil
	}
}

// Invalidate removes key from the store.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// GetStats returns a copy of the current statistics
func (c *Cache) GetStats() *Stats {
	return c.stats.snapshot()
}

// ResetStats resets statistics to zero
func (c *Cache) ResetStats() {
	c.stats.reset()
}
