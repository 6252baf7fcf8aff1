package cachetee

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmBrotli Algorithm = "brotli"
	AlgorithmSnappy Algorithm = "snappy"
)

const (
	// DefaultMaxCacheSize is the compressed-size budget used by DefaultConfig.
	DefaultMaxCacheSize = 2_000_000

	// DefaultLevel is the zstd level used by DefaultConfig.
	DefaultLevel = 12

	defaultBufferSize = 64 * 1024
)

// Config holds caching tee configuration
type Config struct {
	// Algorithm used for the cached artifact (default: zstd)
	Algorithm Algorithm

	// Compression level (algorithm-specific, 0 selects the algorithm default)
	// gzip: 1-9
	// zstd: 1-22
	// lz4: 1-9
	// brotli: 1-11
	// snappy: ignored (must be 0)
	Level int

	// Budget for the cached artifact, measured on compressed output.
	// A stream whose compressed form grows past this is passed through
	// uncached.
	MaxCacheSize int

	// Chunk size used when a Source is built from an io.Reader (default: 64KB)
	BufferSize int

	// Logger receives debug events about cache admission. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmZstd,
		Level:        DefaultLevel,
		MaxCacheSize: DefaultMaxCacheSize,
		BufferSize:   defaultBufferSize,
	}
}

// Validate checks the configuration for values the tee cannot run with.
func (c *Config) Validate() error {
	if c.MaxCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	return validateLevel(c.Algorithm, c.Level)
}

func (c *Config) bufferSize() int {
	if c.BufferSize <= 0 {
		return defaultBufferSize
	}
	return c.BufferSize
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Stats holds cache statistics
type Stats struct {
	Hits    int64 // Open calls served from the store
	Misses  int64 // Open calls that started a tee
	Stored  int64 // artifacts handed to the store
	Skipped int64 // streams that finished without an artifact
	Failed  int64 // finish callbacks that returned an error

	BytesAdmitted   int64 // input bytes admitted to compressors
	BytesCompressed int64 // compressed bytes stored
}

// HitRatio returns hits over all Open calls
func (s *Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// TotalCompressionRatio returns the overall compression ratio of stored artifacts
func (s *Stats) TotalCompressionRatio() float64 {
	if s.BytesAdmitted == 0 {
		return 0
	}
	return float64(s.BytesCompressed) / float64(s.BytesAdmitted)
}

func (s *Stats) snapshot() *Stats {
	return &Stats{
		Hits:            atomic.LoadInt64(&s.Hits),
		Misses:          atomic.LoadInt64(&s.Misses),
		Stored:          atomic.LoadInt64(&s.Stored),
		Skipped:         atomic.LoadInt64(&s.Skipped),
		Failed:          atomic.LoadInt64(&s.Failed),
		BytesAdmitted:   atomic.LoadInt64(&s.BytesAdmitted),
		BytesCompressed: atomic.LoadInt64(&s.BytesCompressed),
	}
}

func (s *Stats) reset() {
	atomic.StoreInt64(&s.Hits, 0)
	atomic.StoreInt64(&s.Misses, 0)
	atomic.StoreInt64(&s.Stored, 0)
	atomic.StoreInt64(&s.Skipped, 0)
	atomic.StoreInt64(&s.Failed, 0)
	atomic.StoreInt64(&s.BytesAdmitted, 0)
	atomic.StoreInt64(&s.BytesCompressed, 0)
}

var (
	ErrUnsupportedAlgorithm = errors.New("cachetee: unsupported compression algorithm")
	ErrInvalidLevel         = errors.New("cachetee: invalid compression level")
	ErrInvalidCacheSize     = errors.New("cachetee: max cache size must be positive")
	ErrNilFinishFunc        = errors.New("cachetee: nil finish callback")
	ErrCompressorClosed     = errors.New("cachetee: compressor already finished or discarded")
	ErrCompressorWrite      = errors.New("cachetee: compressor write failed")
	ErrFinalize             = errors.New("cachetee: finalizing compressed artifact failed")
	ErrFinish               = errors.New("cachetee: finish callback failed")
	ErrCorruptedData        = errors.New("cachetee: corrupted compressed data")
	ErrNotFound             = errors.New("cachetee: entry not found")
)
