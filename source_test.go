package cachetee

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestReaderSourceChunks(t *testing.T) {
	data := testData(10_000)
	src := ReaderSource(bytes.NewReader(data), 4096)

	chunks, errs := drain(t, src)
	if len(errs) != 0 {
		t.Fatalf("Unexpected failure items: %v", errs)
	}
	wantSizes := []int{4096, 4096, 1808}
	if len(chunks) != len(wantSizes) {
		t.Fatalf("Expected %d chunks, got %d", len(wantSizes), len(chunks))
	}
	for i, n := range wantSizes {
		if len(chunks[i]) != n {
			t.Errorf("Chunk %d: %d bytes, want %d", i, len(chunks[i]), n)
		}
	}
	if !bytes.Equal(bytes.Join(chunks, nil), data) {
		t.Error("Chunks do not reassemble to the input")
	}
}

func TestReaderSourceChunksDoNotAlias(t *testing.T) {
	src := ReaderSource(iotest.OneByteReader(bytes.NewReader([]byte("abc"))), 8)
	first, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(first) != "a" {
		t.Errorf("First chunk was overwritten: %q", first)
	}
}

func TestReaderSourceErrorIsOneItem(t *testing.T) {
	readErr := errors.New("pipe broken")
	r := io.MultiReader(bytes.NewReader([]byte("partial")), iotest.ErrReader(readErr))
	src := ReaderSource(r, 1024)

	chunks, errs := drain(t, src)
	if len(chunks) != 1 || string(chunks[0]) != "partial" {
		t.Errorf("Expected the data before the error, got %q", chunks)
	}
	if len(errs) != 1 || errs[0] != readErr {
		t.Errorf("Expected one failure item, got %v", errs)
	}
}

// dataErrReader returns its data and err from the same Read call
type dataErrReader struct {
	data []byte
	err  error
}

func (r *dataErrReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, r.err
}

func TestReaderSourceDataWithError(t *testing.T) {
	readErr := errors.New("truncated")
	src := ReaderSource(&dataErrReader{data: []byte("0123"), err: readErr}, 16)

	chunk, err := src.Next(context.Background())
	if err != nil || string(chunk) != "0123" {
		t.Fatalf("Expected the data first, got %q, %v", chunk, err)
	}
	if _, err := src.Next(context.Background()); err != readErr {
		t.Errorf("Expected the pending error, got %v", err)
	}
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after the error, got %v", err)
	}
}

func TestReaderSourceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := ReaderSource(bytes.NewReader([]byte("data")), 16)
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	chunk, err := src.Next(context.Background())
	if err != nil || string(chunk) != "data" {
		t.Errorf("Expected the source to continue, got %q, %v", chunk, err)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReaderSourceClose(t *testing.T) {
	r := &closeTracker{Reader: bytes.NewReader([]byte("data"))}
	src := ReaderSource(r, 16)
	if err := src.(io.Closer).Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if !r.closed {
		t.Error("Expected the reader to be closed")
	}
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after Close, got %v", err)
	}
}

func TestNewReaderFailureItems(t *testing.T) {
	itemErr := errors.New("bad member")
	src := &itemSource{items: []item{
		{data: []byte("hello ")},
		{err: itemErr},
		{data: []byte("world")},
	}}
	r := NewReader(context.Background(), src)

	buf := make([]byte, 3)
	var got []byte
	var errs []error
	for i := 0; i < 100; i++ {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if string(got) != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", got)
	}
	if len(errs) != 1 || errs[0] != itemErr {
		t.Errorf("Expected one failure, got %v", errs)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if !src.closed {
		t.Error("Expected the source to be closed")
	}
}

func TestNewReaderZeroLengthRead(t *testing.T) {
	src := &itemSource{items: []item{{data: []byte("x")}}}
	r := NewReader(context.Background(), src)
	if n, err := r.Read(nil); n != 0 || err != nil {
		t.Errorf("Expected (0, nil), got (%d, %v)", n, err)
	}
	if src.pulls != 0 {
		t.Errorf("Expected no pulls for an empty read, got %d", src.pulls)
	}
}
