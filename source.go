package cachetee

import (
	"context"
	"io"
)

// Source produces a stream of chunks.
//
// Next returns the next chunk, or io.EOF once the stream is exhausted. Any
// other error is a failure item: it belongs to the stream at that position,
// and a Source may keep producing chunks after it. Chunk boundaries are
// defined by the Source and are never merged or split by this package.
//
// A Source that holds resources should also implement io.Closer.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// readerSource chunks an io.Reader
type readerSource struct {
	r       io.Reader
	size    int
	pending error
	done    bool
}

// ReaderSource returns a Source that reads r in chunks of at most size
// bytes. A read error is delivered as one failure item, after which the
// Source reports io.EOF. Close closes r if it is an io.Closer.
func ReaderSource(r io.Reader, size int) Source {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &readerSource{r: r, size: size}
}

func (s *readerSource) Next(ctx context.Context) ([]byte, error) {
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		s.done = true
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, s.size)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			switch {
			case err == io.EOF:
				s.done = true
			case err != nil:
				s.pending = err
			}
			return buf[:n], nil
		}
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			s.done = true
			return nil, err
		}
	}
}

func (s *readerSource) Close() error {
	s.done = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// sourceReader adapts a Source back into an io.ReadCloser
type sourceReader struct {
	ctx context.Context
	src Source
	buf []byte
	eof bool
}

// NewReader returns an io.ReadCloser that drains src. Failure items are
// returned from Read; reading may continue after them. Close closes src if
// it is an io.Closer, which for a Tee abandons the cache silently when the
// stream was not read to the end.
func NewReader(ctx context.Context, src Source) io.ReadCloser {
	return &sourceReader{ctx: ctx, src: src}
}

func (r *sourceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.buf) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		chunk, err := r.src.Next(r.ctx)
		if err == io.EOF {
			r.eof = true
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *sourceReader) Close() error {
	r.buf = nil
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
