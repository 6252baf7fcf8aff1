// Package cachetee caches the output of expensive stream transforms while
// passing it through untouched.
//
// A Tee sits between a byte-producing Source (an archive extractor, a
// document converter, a decompressor) and its consumer. Every chunk and
// every failure from the source is handed on unchanged and in order. On the
// side, chunks are compressed into memory; once the source reports io.EOF
// the compressed artifact is passed to a FinishFunc, typically one that
// writes it to a Store.
//
// # Budget
//
// Config.MaxCacheSize bounds the compressed artifact. The compressed size is
// checked after every chunk; as soon as it exceeds the budget the partial
// artifact is dropped and the rest of the stream is passed through
// uncached. The final flush can add trailer bytes, so the size is checked
// again at EOF. Memory use is the budget plus at most one chunk's worth of
// compressed output.
//
// # Finalization
//
// The FinishFunc runs exactly once, when the consumer reads the stream to
// io.EOF. A stream that is closed early never calls it. Errors from the
// compressor or the FinishFunc are delivered as the last item of the
// stream; use errors.Is with ErrCompressorWrite, ErrFinalize and ErrFinish
// to tell them apart.
//
// # Quick Start
//
//	store, _ := badgerstore.Open("/var/cache/extract", nil)
//	cache, _ := cachetee.New(store, cachetee.DefaultConfig())
//
//	r, _ := cache.OpenReader(ctx, key, converterOutput, cachetee.Input{
//	    PathHint:   "report.pdf",
//	    IsRealFile: true,
//	})
//	defer r.Close()
//	io.Copy(searchIndex, r)
//
// # Algorithms
//
//   - Zstd (default, level 12): best ratio for extracted text
//   - LZ4, Snappy: fastest, larger artifacts
//   - Brotli: smallest artifacts, slow
//   - Gzip: readable by any tool
//
// Stores live in subpackages: fsstore (any absfs filesystem), badgerstore
// and bigcachestore.
package cachetee
