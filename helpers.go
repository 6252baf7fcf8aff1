package cachetee

import (
	"bytes"
	"io"
)

// Preset configurations for common use cases

// FastestConfig returns a configuration optimized for speed
func FastestConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmLZ4,
		Level:        0,
		MaxCacheSize: DefaultMaxCacheSize,
		BufferSize:   64 * 1024,
	}
}

// BestCompressionConfig returns a configuration optimized for maximum compression.
// Brotli at level 11 is slow; use it where streams are adapted once and read many times.
func BestCompressionConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmBrotli,
		Level:        11,
		MaxCacheSize: DefaultMaxCacheSize,
		BufferSize:   128 * 1024,
	}
}

// CompatibleConfig returns a configuration using gzip for maximum compatibility
func CompatibleConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmGzip,
		Level:        6,
		MaxCacheSize: DefaultMaxCacheSize,
		BufferSize:   64 * 1024,
	}
}

// LowCPUConfig returns a configuration optimized for low CPU usage
func LowCPUConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmSnappy,
		Level:        0, // Snappy has no levels
		MaxCacheSize: DefaultMaxCacheSize,
		BufferSize:   32 * 1024,
	}
}

// CompressBytes compresses a byte slice using the specified algorithm and level.
// The output is identical to the artifact a Tee builds from the same bytes.
func CompressBytes(data []byte, algo Algorithm, level int) ([]byte, error) {
	comp, err := NewCompressor(algo, level)
	if err != nil {
		return nil, err
	}
	if _, err := comp.Write(data); err != nil {
		comp.Discard()
		return nil, err
	}
	return comp.Finish()
}

// DecompressBytes decompresses a byte slice using the specified algorithm
func DecompressBytes(data []byte, algo Algorithm) ([]byte, error) {
	decompressor, err := NewDecompressor(algo, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer decompressor.Close()

	return io.ReadAll(decompressor)
}

// NewDecompressor returns a reader of the uncompressed form of r.
func NewDecompressor(algo Algorithm, r io.Reader) (io.ReadCloser, error) {
	return createDecompressor(algo, r)
}

// GetCompressionRatio calculates the compression ratio for given original and compressed sizes
// Returns a value between 0 and 1, where lower is better
// E.g., 0.5 means the compressed size is 50% of the original
func GetCompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return float64(compressedSize) / float64(originalSize)
}
