package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// FillFunc streams a blob's content into the cache file being written.
type FillFunc func(w io.Writer) error

// Cache is a disk-backed store of downloaded blobs. Safe for concurrent
// use within one process; cross-process writers are isolated by the
// tmp-then-rename install.
type Cache struct {
	root   string
	logger *slog.Logger
	group  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for cache hits and downloads.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache rooted at dir. The directory is created on first
// use, not here.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{root: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the local file path an entry for key would occupy, whether
// or not it exists yet.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

// Fetch returns a local path holding key's content, downloading via fill
// when the entry is absent, older than remoteModified, or force is set.
// Concurrent Fetch calls for the same key share one download.
func (c *Cache) Fetch(ctx context.Context, key string, remoteModified time.Time, force bool, fill FillFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := c.Path(key)
	_, err, _ := c.group.Do(key, func() (any, error) {
		if !force {
			if info, err := os.Stat(path); err == nil && !remoteModified.After(info.ModTime()) {
				c.logger.Debug("cache hit", "key", key, "path", path)
				return nil, nil
			}
		}
		return nil, c.download(key, path, fill)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (c *Cache) download(key, path string, fill FillFunc) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// A leftover tmp file is a dirty result of a crashed download.
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	c.logger.Debug("cached blob", "key", key, "path", path)
	return nil
}
