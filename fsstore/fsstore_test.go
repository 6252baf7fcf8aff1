package fsstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absfs/cachetee"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(NewMemFS(), "/var/cache/tee", opts...)
	require.NoError(t, err)
	return s
}

func testEntry(t *testing.T, algo cachetee.Algorithm, text string) cachetee.Entry {
	t.Helper()
	artifact, err := cachetee.CompressBytes([]byte(text), algo, 0)
	require.NoError(t, err)
	return cachetee.Entry{
		Algorithm:    algo,
		BytesWritten: uint64(len(text)),
		Artifact:     artifact,
	}
}

func TestStorePutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	e := testEntry(t, cachetee.AlgorithmZstd, "extracted text")
	require.NoError(t, s.Put(ctx, "doc.pdf", e))

	got, ok, err := s.Get(ctx, "doc.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, got)

	text, err := cachetee.DecompressBytes(got.Artifact, got.Algorithm)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", string(text))
}

func TestStoreFileLayout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	filer := NewMemFS()
	s, err := New(filer, "/cache")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "k", testEntry(t, cachetee.AlgorithmGzip, "hello")))

	base := s.base("k")
	assert.True(t, strings.HasPrefix(base, "/cache/"))
	parts := strings.Split(strings.TrimPrefix(base, "/cache/"), "/")
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], 64)
	assert.Equal(t, parts[1][:2], parts[0])

	info, err := filer.Stat(base + ".gz")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestStoreNoSharding(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, WithShardPrefixLen(0))
	base := s.base("k")
	assert.Equal(t, "/var/cache/tee", base[:len(base)-65])
}

func TestStoreReplaceWithOtherAlgorithm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	filer := NewMemFS()
	s, err := New(filer, "/cache")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "k", testEntry(t, cachetee.AlgorithmGzip, "old")))
	require.NoError(t, s.Put(ctx, "k", testEntry(t, cachetee.AlgorithmLZ4, "new")))

	_, err = filer.Stat(s.base("k") + ".gz")
	assert.True(t, os.IsNotExist(err), "old artifact should be removed, got %v", err)

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cachetee.AlgorithmLZ4, got.Algorithm)
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.ErrorIs(t, s.Delete(ctx, "k"), cachetee.ErrNotFound)
	require.NoError(t, s.Put(ctx, "k", testEntry(t, cachetee.AlgorithmSnappy, "data")))
	require.NoError(t, s.Delete(ctx, "k"))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreCorruptedFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	filer := NewMemFS()
	s, err := New(filer, "/cache")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", testEntry(t, cachetee.AlgorithmZstd, "data")))

	f, err := filer.OpenFile(s.base("k")+".zst", os.O_WRONLY|os.O_TRUNC, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte("not cbor"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cachetee.ErrCorruptedData)
}

func TestStoreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestStore(t)

	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Put(ctx, "k", cachetee.Entry{Algorithm: cachetee.AlgorithmZstd}), context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, "k"), context.Canceled)
}

func TestStoreRejectsBadOptions(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "/cache")
	assert.Error(t, err)
	_, err = New(NewMemFS(), "")
	assert.Error(t, err)
	_, err = New(NewMemFS(), "/cache", WithShardPrefixLen(-1))
	assert.Error(t, err)
}

func TestStoreConcurrentPuts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	const workers = 20
	entries := make([]cachetee.Entry, workers)
	for i := 0; i < workers; i++ {
		entries[i] = testEntry(t, cachetee.AlgorithmZstd, fmt.Sprintf("file-%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, fmt.Sprintf("file-%d", i), entries[i]))
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		key := fmt.Sprintf("file-%d", i)
		got, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok, key)
		text, err := cachetee.DecompressBytes(got.Artifact, got.Algorithm)
		require.NoError(t, err)
		assert.Equal(t, key, string(text))
	}
}

func TestStoreWithCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, err := cachetee.New(newTestStore(t), nil)
	require.NoError(t, err)

	src, err := cache.Open(ctx, "k", cachetee.Input{
		Source: cachetee.ReaderSource(strings.NewReader(strings.Repeat("line\n", 1000)), 512),
	})
	require.NoError(t, err)
	for {
		_, err := src.Next(ctx)
		if err != nil {
			break
		}
	}

	src, err = cache.Open(ctx, "k", cachetee.Input{})
	require.NoError(t, err)
	var total int
	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			break
		}
		total += len(chunk)
	}
	assert.Equal(t, 5000, total)
	assert.Equal(t, int64(1), cache.GetStats().Hits)
}
