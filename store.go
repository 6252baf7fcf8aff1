package cachetee

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// Entry is a cached artifact as kept by a Store.
type Entry struct {
	Algorithm    Algorithm `cbor:"1,keyasint"`
	Level        int       `cbor:"2,keyasint"`
	BytesWritten uint64    `cbor:"3,keyasint"`
	Artifact     []byte    `cbor:"4,keyasint"`
}

// Store persists cached artifacts by key.
//
// Implementations must be safe for concurrent use with distinct keys; many
// tees finish independently and nothing above the Store serializes them.
type Store interface {
	// Get returns the entry for key. A miss is (Entry{}, false, nil).
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Put stores e under key, replacing any previous entry.
	Put(ctx context.Context, key string, e Entry) error

	// Delete removes key. It returns ErrNotFound if key is absent.
	Delete(ctx context.Context, key string) error
}

// encMode uses Core Deterministic Encoding so equal entries encode to
// identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cachetee: CBOR encoder initialization failed: " + err.Error())
	}
}

// EncodeEntry serializes e for stores that keep opaque values.
func EncodeEntry(e Entry) ([]byte, error) {
	return encMode.Marshal(e)
}

// DecodeEntry reverses EncodeEntry and checks the artifact against its
// declared algorithm.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrCorruptedData, err)
	}
	if err := verifyArtifact(e.Algorithm, e.Artifact); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Open returns a reader of the uncompressed artifact.
func (e Entry) Open() (io.ReadCloser, error) {
	if err := verifyArtifact(e.Algorithm, e.Artifact); err != nil {
		return nil, err
	}
	return NewDecompressor(e.Algorithm, bytes.NewReader(e.Artifact))
}

// ArtifactSource returns a Source over the uncompressed artifact of e,
// chunked at size bytes.
func ArtifactSource(e Entry, size int) (Source, error) {
	r, err := e.Open()
	if err != nil {
		return nil, err
	}
	return ReaderSource(r, size), nil
}

// PersistTo returns a FinishFunc that stores the artifact under key.
// Streams that finished without an artifact are not stored.
func PersistTo(store Store, key string, config *Config) FinishFunc {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.logger()
	return func(ctx context.Context, res FinishResult) error {
		logger.Debug("uncompressed output",
			zap.String("key", key),
			zap.Uint64("bytes", res.BytesWritten))
		if res.Artifact == nil {
			return nil
		}
		logger.Debug("compressed output",
			zap.String("key", key),
			zap.Int("bytes", len(res.Artifact)))
		err := store.Put(ctx, key, Entry{
			Algorithm:    config.Algorithm,
			Level:        config.Level,
			BytesWritten: res.BytesWritten,
			Artifact:     res.Artifact,
		})
		if err != nil {
			return fmt.Errorf("writing to cache: %w", err)
		}
		return nil
	}
}
