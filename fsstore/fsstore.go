// Package fsstore keeps cached artifacts as files on an absfs filesystem.
package fsstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sync/atomic"

	"github.com/absfs/absfs"
	"github.com/zeebo/blake3"

	"github.com/absfs/cachetee"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	defaultFilePerm       = 0o600
)

// Store implements cachetee.Store on an absfs.Filer.
//
// Keys are hashed with BLAKE3 into file names, sharded by the first hex
// characters. The file extension records the artifact's algorithm, so
// data/ab/ab12...ef.zst holds a zstd artifact.
type Store struct {
	fs             absfs.Filer
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	filePerm       os.FileMode
	tmpSeq         atomic.Uint64
}

var _ cachetee.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(s *Store) {
		s.shardPrefixLen = n
	}
}

// WithDirPerm sets the permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions used for cache files.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// New creates a Store rooted at dir on filer.
func New(filer absfs.Filer, dir string, opts ...Option) (*Store, error) {
	if filer == nil {
		return nil, errors.New("fsstore: nil filesystem")
	}
	if dir == "" {
		return nil, errors.New("fsstore: cache dir is empty")
	}
	s := &Store{
		fs:             filer,
		dir:            path.Clean(dir),
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		filePerm:       defaultFilePerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shardPrefixLen < 0 {
		return nil, errors.New("fsstore: shard prefix length must be >= 0")
	}
	if err := s.mkdir(s.dir); err != nil {
		return nil, err
	}
	return s, nil
}

// Get reads the entry for key.
func (s *Store) Get(ctx context.Context, key string) (cachetee.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cachetee.Entry{}, false, err
	}
	base := s.base(key)
	for _, algo := range cachetee.Algorithms() {
		data, err := s.readFile(base + cachetee.GetExtension(algo))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return cachetee.Entry{}, false, err
		}
		entry, err := cachetee.DecodeEntry(data)
		if err != nil {
			return cachetee.Entry{}, false, err
		}
		return entry, true, nil
	}
	return cachetee.Entry{}, false, nil
}

// Put writes e under key through a temporary file and a rename, then
// removes entries for key stored with other algorithms.
func (s *Store) Put(ctx context.Context, key string, e cachetee.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ext := cachetee.GetExtension(e.Algorithm)
	if ext == "" {
		return cachetee.ErrUnsupportedAlgorithm
	}
	data, err := cachetee.EncodeEntry(e)
	if err != nil {
		return err
	}

	base := s.base(key)
	if err := s.mkdir(path.Dir(base)); err != nil {
		return err
	}

	final := base + ext
	tmp := fmt.Sprintf("%s.tmp-%d", final, s.tmpSeq.Add(1))
	if err := s.writeFile(tmp, data); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}

	for _, algo := range cachetee.Algorithms() {
		if algo == e.Algorithm {
			continue
		}
		_ = s.fs.Remove(base + cachetee.GetExtension(algo))
	}
	return nil
}

// Delete removes every file stored for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	base := s.base(key)
	removed := false
	for _, algo := range cachetee.Algorithms() {
		err := s.fs.Remove(base + cachetee.GetExtension(algo))
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}
	}
	if !removed {
		return cachetee.ErrNotFound
	}
	return nil
}

// base returns the extension-less path of key's file.
func (s *Store) base(key string) string {
	sum := blake3.Sum256([]byte(key))
	hexHash := hex.EncodeToString(sum[:])
	if s.shardPrefixLen <= 0 {
		return path.Join(s.dir, hexHash)
	}
	prefixLen := min(s.shardPrefixLen, len(hexHash))
	return path.Join(s.dir, hexHash[:prefixLen], hexHash)
}

// mkdir creates dir and any missing parents.
func (s *Store) mkdir(dir string) error {
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	if info, err := s.fs.Stat(dir); err == nil && info.IsDir() {
		return nil
	}
	if err := s.mkdir(path.Dir(dir)); err != nil {
		return err
	}
	err := s.fs.Mkdir(dir, s.dirPerm)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

func (s *Store) readFile(name string) ([]byte, error) {
	f, err := s.fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Store) writeFile(name string, data []byte) error {
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.filePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
