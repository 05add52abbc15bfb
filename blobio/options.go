package blobio

import "log/slog"

type config struct {
	bufferSize int64
	logger     *slog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a stream at open time.
type Option func(*config)

// WithBufferSize overrides the default 50 MiB chunk/block size. Values <= 0
// keep the default.
func WithBufferSize(size int64) Option {
	return func(c *config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// WithLogger sets the logger used for operational events (chunk fetches,
// block staging, commits). Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
