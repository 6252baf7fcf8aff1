package cachetee

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Extension mapping
var extensionMap = map[Algorithm]string{
	AlgorithmGzip:   ".gz",
	AlgorithmZstd:   ".zst",
	AlgorithmLZ4:    ".lz4",
	AlgorithmBrotli: ".br",
	AlgorithmSnappy: ".sz",
}

// Reverse extension mapping (extension -> algorithm)
var reverseExtensionMap = map[string]Algorithm{
	".gz":     AlgorithmGzip,
	".gzip":   AlgorithmGzip,
	".zst":    AlgorithmZstd,
	".zstd":   AlgorithmZstd,
	".lz4":    AlgorithmLZ4,
	".br":     AlgorithmBrotli,
	".sz":     AlgorithmSnappy,
	".snappy": AlgorithmSnappy,
}

// Magic bytes for compression format detection. Raw brotli streams have
// no magic number and are not listed.
var magicBytes = map[Algorithm][]byte{
	AlgorithmGzip:   {0x1f, 0x8b},
	AlgorithmZstd:   {0x28, 0xb5, 0x2f, 0xfd},
	AlgorithmLZ4:    {0x04, 0x22, 0x4d, 0x18},
	AlgorithmSnappy: {0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50}, // framed stream identifier
}

// Algorithms lists every supported algorithm in preference order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmZstd, AlgorithmGzip, AlgorithmLZ4, AlgorithmBrotli, AlgorithmSnappy}
}

// GetExtension returns the file extension for an algorithm
func GetExtension(algo Algorithm) string {
	if ext, ok := extensionMap[algo]; ok {
		return ext
	}
	return ""
}

// DetectAlgorithmFromExtension detects the algorithm from file extension
func DetectAlgorithmFromExtension(name string) (Algorithm, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if algo, ok := reverseExtensionMap[ext]; ok {
		return algo, true
	}
	return "", false
}

// DetectAlgorithm detects compression algorithm from magic bytes.
// It returns "" when nothing matches.
func DetectAlgorithm(r io.Reader) (Algorithm, error) {
	buf := make([]byte, 10)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	algo, _ := IsCompressed(buf[:n])
	return algo, nil
}

// IsCompressed checks if data appears to be compressed based on magic bytes
func IsCompressed(data []byte) (Algorithm, bool) {
	for algo, magic := range magicBytes {
		if len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic) {
			return algo, true
		}
	}
	return "", false
}

// verifyArtifact checks that a non-empty artifact starts with the magic
// number of its declared algorithm, where that algorithm has one.
func verifyArtifact(algo Algorithm, artifact []byte) error {
	if len(artifact) == 0 {
		return nil
	}
	magic, ok := magicBytes[algo]
	if !ok {
		return nil
	}
	if !bytes.HasPrefix(artifact, magic) {
		return ErrCorruptedData
	}
	return nil
}
