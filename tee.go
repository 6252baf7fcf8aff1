package cachetee

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// FinishFunc receives the cache outcome of a tee once its source is
// exhausted. It is called at most once per Tee, and never when the stream
// is closed before EOF.
type FinishFunc func(ctx context.Context, res FinishResult) error

type teeState int

const (
	teeNotStarted teeState = iota
	teeRelaying
	teeFinalizing
	teeDone
)

// Tee passes a Source through unchanged while building a compressed copy
// of it in memory.
//
// Every item from the source, chunk or failure, is returned by Next in the
// original order. Chunks are also written to a Compressor until its output
// grows past Config.MaxCacheSize, at which point the copy is dropped for
// the rest of the stream. When the source reports io.EOF the compressor is
// flushed and the FinishFunc is called with the result; its error, if any,
// is the last item of the stream.
//
// A Tee is not safe for concurrent use.
type Tee struct {
	src      Source
	policy   *admission
	onFinish FinishFunc
	state    teeState
	closed   bool
	logger   *zap.Logger
}

var (
	_ Source    = (*Tee)(nil)
	_ io.Closer = (*Tee)(nil)
)

// NewTee wraps src. A nil config uses DefaultConfig.
func NewTee(src Source, config *Config, onFinish FinishFunc) (*Tee, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if onFinish == nil {
		return nil, ErrNilFinishFunc
	}

	comp, err := NewCompressor(config.Algorithm, config.Level)
	if err != nil {
		return nil, err
	}

	logger := config.logger()
	return &Tee{
		src:      src,
		policy:   newAdmission(comp, config.MaxCacheSize, logger),
		onFinish: onFinish,
		state:    teeNotStarted,
		logger:   logger,
	}, nil
}

// Wrap returns a reader that yields exactly what r yields while caching it
// as described for Tee. Reading to io.EOF runs onFinish; a Finish or
// flush failure is returned from the final Read.
func Wrap(ctx context.Context, r io.Reader, config *Config, onFinish FinishFunc) (io.ReadCloser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	tee, err := NewTee(ReaderSource(r, config.bufferSize()), config, onFinish)
	if err != nil {
		return nil, err
	}
	return NewReader(ctx, tee), nil
}

// Next returns the next item of the source. After the source is exhausted
// it finalizes the cache and then reports io.EOF.
func (t *Tee) Next(ctx context.Context) ([]byte, error) {
	if t.state == teeDone {
		return nil, io.EOF
	}
	if t.state == teeNotStarted {
		t.state = teeRelaying
	}

	if t.state == teeRelaying {
		chunk, err := t.src.Next(ctx)
		switch {
		case err == io.EOF:
			t.logger.Debug("eof", zap.Uint64("admitted", t.policy.bytesWritten))
			t.state = teeFinalizing
		case err != nil:
			return nil, err
		default:
			if werr := t.policy.admit(chunk); werr != nil {
				t.state = teeDone
				t.policy.discard()
				return nil, fmt.Errorf("%w: %w", ErrCompressorWrite, werr)
			}
			return chunk, nil
		}
	}

	t.state = teeDone
	res, err := t.policy.finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	if err := t.onFinish(ctx, res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFinish, err)
	}
	return nil, io.EOF
}

// Close stops the tee. If the source was not exhausted yet, the partial
// cache is discarded and the FinishFunc is never called. Close also closes
// the source if it is an io.Closer.
func (t *Tee) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.state != teeDone {
		t.logger.Debug("closed before eof, discarding cache",
			zap.Uint64("admitted", t.policy.bytesWritten))
		t.state = teeDone
		t.policy.discard()
	}
	if c, ok := t.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CacheState reports whether caching is still active.
func (t *Tee) CacheState() CacheState {
	return t.policy.state
}

// BytesWritten reports the input bytes admitted to the compressor so far.
func (t *Tee) BytesWritten() uint64 {
	return t.policy.bytesWritten
}
