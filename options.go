package iopath

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nikhilweee/iopath/blobio"
)

const (
	// CacheSubdir is the directory under the cache root where downloaded
	// blobs are materialized.
	CacheSubdir = "blob_cache"

	defaultCopyTimeout      = 30 * time.Minute
	defaultCopyPollInterval = 30 * time.Second
	defaultDownloadWorkers  = 8
)

type options struct {
	chunkSize        int64
	cacheDir         string
	logger           *Logger
	copyTimeout      time.Duration
	copyPollInterval time.Duration
	asyncWorkers     int
	downloadWorkers  int
}

func defaultOptions() options {
	return options{
		chunkSize:        blobio.DefaultBufferSize,
		cacheDir:         defaultCacheDir(),
		logger:           NewLogger(nil),
		copyTimeout:      defaultCopyTimeout,
		copyPollInterval: defaultCopyPollInterval,
		downloadWorkers:  defaultDownloadWorkers,
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "iopath")
	}
	return filepath.Join(os.TempDir(), "iopath")
}

// Option configures a Handler.
type Option func(*options)

// WithChunkSize sets the default transfer size for streams opened through
// the handler. Individual opens may still override it. Values <= 0 keep
// the 50 MiB default.
func WithChunkSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithCacheDir sets the root directory for GetLocalPath downloads.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.cacheDir = dir
		}
	}
}

// WithLogger sets the handler's logger.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCopyWait tunes the bounded wait applied after starting a server-side
// copy: status is polled every interval until timeout.
func WithCopyWait(timeout, interval time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.copyTimeout = timeout
		}
		if interval > 0 {
			o.copyPollInterval = interval
		}
	}
}

// WithAsyncWorkers sets the shared pool capacity for OpenAsync writes.
func WithAsyncWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.asyncWorkers = n
		}
	}
}

// WithDownloadWorkers bounds the parallelism of directory downloads in
// GetLocalPath.
func WithDownloadWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.downloadWorkers = n
		}
	}
}
