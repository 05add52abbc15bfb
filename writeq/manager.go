package writeq

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// DefaultWorkers is the shared pool capacity used when no override is
// given.
const DefaultWorkers = 16

var (
	// ErrManagerClosed is returned by operations on a manager after
	// JoinAll, and by writes enqueued to a path that has been joined.
	ErrManagerClosed = errors.New("writeq: manager closed")

	// ErrPathNotRegistered is returned by Join for a path that has no
	// async writes associated with it.
	ErrPathNotRegistered = errors.New("writeq: path not registered")
)

// OpenFunc opens the underlying synchronous handle for a destination path.
type OpenFunc func() (io.WriteCloser, error)

// pathData holds the queue and dispatcher state for one destination path.
type pathData struct {
	queue *jobQueue
	done  chan struct{}

	mu  sync.Mutex
	err error // first job failure, surfaced at Join
}

func (pd *pathData) setErr(err error) {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if pd.err == nil {
		pd.err = err
	}
}

func (pd *pathData) takeErr() error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	return pd.err
}

// Manager tracks the per-path queues and dispatcher goroutines behind all
// non-blocking writers, plus the shared worker pool they execute on. Safe
// for concurrent use.
type Manager struct {
	pool   *workerPool
	logger *slog.Logger

	mu     sync.Mutex
	paths  map[string]*pathData
	closed bool
}

type managerOptions struct {
	workers int64
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithWorkers sets the shared pool capacity. Values <= 0 keep the default.
func WithWorkers(n int) ManagerOption {
	return func(o *managerOptions) {
		if n > 0 {
			o.workers = int64(n)
		}
	}
}

// WithLogger sets the logger for dispatcher lifecycle events.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewManager creates a manager with an empty registry. The caller owns its
// lifecycle and must call JoinAll before discarding it to drain queued
// work.
func NewManager(opts ...ManagerOption) *Manager {
	o := managerOptions{workers: DefaultWorkers, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		pool:   newWorkerPool(o.workers),
		logger: o.logger,
		paths:  make(map[string]*pathData),
	}
}

// Open returns a non-blocking Writer for path. The underlying handle is
// opened eagerly via open; only subsequent Write and Close calls are
// deferred. The first Open for a path starts its dispatcher; later Opens
// for the same path share the existing queue, so their writes interleave in
// enqueue order.
func (m *Manager) Open(path string, open OpenFunc) (*Writer, error) {
	if open == nil {
		return nil, fmt.Errorf("writeq: nil open func for %s", path)
	}

	file, err := open()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = file.Close()
		return nil, ErrManagerClosed
	}
	pd, ok := m.paths[path]
	if !ok {
		pd = &pathData{queue: newJobQueue(), done: make(chan struct{})}
		m.paths[path] = pd
		go m.dispatch(path, pd)
	}
	m.mu.Unlock()

	return &Writer{path: path, file: file, data: pd}, nil
}

// dispatch serializes job execution for one path: each job is submitted to
// the shared pool and must complete before the next is dequeued.
func (m *Manager) dispatch(path string, pd *pathData) {
	defer close(pd.done)
	for {
		job, ok := pd.queue.Pop()
		if !ok {
			m.logger.Debug("dispatcher exiting", "path", path)
			return
		}
		if err := <-m.pool.submit(job); err != nil {
			m.logger.Error("async write job failed", "path", path, "error", err)
			pd.setErr(err)
		}
	}
}

// Join drains path's queue, waits for its dispatcher to exit, removes the
// path from the registry and returns the first error any of its jobs
// produced. Joining a path that was never opened is a usage error.
func (m *Manager) Join(path string) error {
	m.mu.Lock()
	pd, ok := m.paths[path]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s (call Open first)", ErrPathNotRegistered, path)
	}
	delete(m.paths, path)
	m.mu.Unlock()

	pd.queue.Close()
	<-pd.done
	return pd.takeErr()
}

// JoinAll drains every registered path, shuts down the shared pool and
// closes the manager. Any Open or enqueue after JoinAll fails with
// ErrManagerClosed. The first per-path error encountered is returned;
// remaining paths are still drained.
func (m *Manager) JoinAll() error {
	m.mu.Lock()
	paths := m.paths
	m.paths = make(map[string]*pathData)
	m.closed = true
	m.mu.Unlock()

	var first error
	for path, pd := range paths {
		pd.queue.Close()
		<-pd.done
		if err := pd.takeErr(); err != nil && first == nil {
			first = fmt.Errorf("%s: %w", path, err)
		}
	}
	m.pool.shutdown()
	return first
}
