package cachetee

import (
	"bytes"
	"io"
)

// Compressor incrementally compresses a byte stream into memory.
//
// Len reports how many compressed bytes have been produced so far. Codecs
// buffer internally, so Len lags the final size until Finish flushes the
// trailing frame data.
//
// Finish and Discard both end the compressor's life. Finish flushes and
// returns the complete compressed buffer; Discard drops everything without
// flushing. After either, Write and Finish return ErrCompressorClosed.
type Compressor interface {
	Write(p []byte) (int, error)
	Len() int
	Finish() ([]byte, error)
	Discard()
}

// bufferCompressor feeds a codec writer into an in-memory buffer
type bufferCompressor struct {
	buf *bytes.Buffer
	w   io.WriteCloser
}

// NewCompressor returns a Compressor for algo at the given level.
func NewCompressor(algo Algorithm, level int) (Compressor, error) {
	buf := new(bytes.Buffer)
	w, err := createCompressor(algo, buf, level)
	if err != nil {
		return nil, err
	}
	return &bufferCompressor{buf: buf, w: w}, nil
}

func (c *bufferCompressor) Write(p []byte) (int, error) {
	if c.w == nil {
		return 0, ErrCompressorClosed
	}
	return c.w.Write(p)
}

func (c *bufferCompressor) Len() int {
	if c.buf == nil {
		return 0
	}
	return c.buf.Len()
}

func (c *bufferCompressor) Finish() ([]byte, error) {
	if c.w == nil {
		return nil, ErrCompressorClosed
	}
	w, buf := c.w, c.buf
	c.w, c.buf = nil, nil
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *bufferCompressor) Discard() {
	c.w, c.buf = nil, nil
}
