package iopath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilweee/iopath/blobio"
	"github.com/nikhilweee/iopath/cache"
	"github.com/nikhilweee/iopath/writeq"
)

// Stream is the handle returned by Open. Depending on the mode it is a
// *blobio.ReadStream or a *blobio.WriteStream; callers that know the mode
// can type-assert, callers that only need to release the handle can stop
// at Close.
type Stream interface {
	io.Closer
}

// Handler is the entry point of the package: it resolves az:// and
// blob:// URIs, opens chunked read and write streams, schedules ordered
// asynchronous writes, and mirrors remote blobs into a local cache.
//
// A Handler is safe for concurrent use. It lazily creates one Service per
// storage account through its factory and reuses it for the lifetime of
// the handler.
type Handler struct {
	factory ServiceFactory
	opts    options
	logger  *Logger

	manager *writeq.Manager
	cache   *cache.Cache

	mu       sync.Mutex
	services map[string]Service
	closed   bool
}

// NewHandler creates a Handler that reaches storage through services built
// by factory.
func NewHandler(factory ServiceFactory, opts ...Option) *Handler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	managerOpts := []writeq.ManagerOption{writeq.WithLogger(o.logger.Logger)}
	if o.asyncWorkers > 0 {
		managerOpts = append(managerOpts, writeq.WithWorkers(o.asyncWorkers))
	}

	return &Handler{
		factory:  factory,
		opts:     o,
		logger:   o.logger,
		manager:  writeq.NewManager(managerOpts...),
		cache:    cache.New(filepath.Join(o.cacheDir, CacheSubdir), cache.WithLogger(o.logger.Logger)),
		services: make(map[string]Service),
	}
}

// service returns the cached Service for account, creating it on first
// use.
func (h *Handler) service(account string) (Service, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHandlerClosed
	}
	if svc, ok := h.services[account]; ok {
		return svc, nil
	}
	svc, err := h.factory(account)
	if err != nil {
		return nil, fmt.Errorf("create service for account %q: %w", account, err)
	}
	h.services[account] = svc
	return svc, nil
}

// resolve parses uri and returns it alongside the account's Service.
func (h *Handler) resolve(uri string) (URI, Service, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return URI{}, nil, err
	}
	svc, err := h.service(u.Account)
	if err != nil {
		return URI{}, nil, err
	}
	return u, svc, nil
}

func (h *Handler) streamOptions() []blobio.Option {
	return []blobio.Option{
		blobio.WithBufferSize(h.opts.chunkSize),
		blobio.WithLogger(h.logger.Logger),
	}
}

// Open opens uri for streaming in the given mode. Supported modes are
// "rb" (chunked reads) and "wb" (block-staged writes); anything else
// returns ErrInvalidMode.
func (h *Handler) Open(ctx context.Context, uri, mode string) (Stream, error) {
	switch mode {
	case "rb":
		return h.OpenRead(ctx, uri)
	case "wb":
		return h.OpenWrite(ctx, uri)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// OpenRead opens uri for sequential chunked reading.
func (h *Handler) OpenRead(ctx context.Context, uri string) (*blobio.ReadStream, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return nil, err
	}
	return blobio.NewReadStream(ctx, svc.Blob(u.Container, u.Path), h.streamOptions()...)
}

// OpenWrite opens uri for block-staged writing. Data becomes visible only
// when the returned stream is closed; closing without writing creates
// nothing.
func (h *Handler) OpenWrite(ctx context.Context, uri string) (*blobio.WriteStream, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return nil, err
	}
	return blobio.NewWriteStream(ctx, svc.Blob(u.Container, u.Path), h.streamOptions()...), nil
}

// OpenAsync opens uri for ordered asynchronous writing. Each Write (and
// the final Close) is enqueued and executed in order by a background
// worker; call Join or JoinAll to wait for completion and collect any
// error. Only mode "wb" is supported.
func (h *Handler) OpenAsync(ctx context.Context, uri, mode string) (*writeq.Writer, error) {
	if mode != "wb" {
		return nil, fmt.Errorf("%w: %q (async supports only \"wb\")", ErrInvalidMode, mode)
	}
	u, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return h.manager.Open(u.String(), func() (io.WriteCloser, error) {
		return h.OpenWrite(ctx, uri)
	})
}

// Join blocks until all asynchronous writes targeting uri have completed
// and returns the first error any of them produced.
func (h *Handler) Join(uri string) error {
	u, err := ParseURI(uri)
	if err != nil {
		return err
	}
	return h.manager.Join(u.String())
}

// JoinAll blocks until every pending asynchronous write on every path has
// completed. After JoinAll the handler accepts no further async opens.
func (h *Handler) JoinAll() error {
	return h.manager.JoinAll()
}

// IsFile reports whether uri names an existing blob.
func (h *Handler) IsFile(ctx context.Context, uri string) (bool, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return false, err
	}
	_, err = svc.Properties(ctx, u.Container, u.Path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsDir reports whether uri names a blob prefix with at least one blob
// beneath it. Blob storage has no real directories; a "directory" exists
// exactly when something is stored under it.
func (h *Handler) IsDir(ctx context.Context, uri string) (bool, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return false, err
	}
	prefix := dirPrefix(u.Path)
	names, err := svc.List(ctx, u.Container, prefix)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if len(name) > len(prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Exists reports whether uri names a blob or a non-empty blob prefix.
func (h *Handler) Exists(ctx context.Context, uri string) (bool, error) {
	ok, err := h.IsFile(ctx, uri)
	if err != nil || ok {
		return ok, err
	}
	return h.IsDir(ctx, uri)
}

// Ls lists the blobs under uri's path prefix and returns their full az://
// URIs.
func (h *Handler) Ls(ctx context.Context, uri string) ([]string, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return nil, err
	}
	names, err := svc.List(ctx, u.Container, u.Path)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(names))
	for _, name := range names {
		uris = append(uris, URI{Account: u.Account, Container: u.Container, Path: name}.String())
	}
	return uris, nil
}

// Rm deletes the blob at uri.
func (h *Handler) Rm(ctx context.Context, uri string) error {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return err
	}
	return svc.Delete(ctx, u.Container, u.Path)
}

// Mkdirs is a no-op: blob storage has no directories to create. It exists
// so callers can treat remote and local paths uniformly.
func (h *Handler) Mkdirs(ctx context.Context, uri string) error {
	_, _, err := h.resolve(uri)
	return err
}

// Copy performs a server-side copy from srcURI to dstURI and waits for it
// to complete, polling at the configured interval. If the copy is still
// pending when the configured timeout elapses, Copy returns ErrCopyPending;
// the backend may still finish the copy afterwards.
func (h *Handler) Copy(ctx context.Context, srcURI, dstURI string) error {
	src, srcSvc, err := h.resolve(srcURI)
	if err != nil {
		return err
	}
	dst, dstSvc, err := h.resolve(dstURI)
	if err != nil {
		return err
	}

	sourceURL := srcSvc.AuthURL(src.Container, src.Path)
	if err := dstSvc.StartCopy(ctx, dst.Container, dst.Path, sourceURL); err != nil {
		return fmt.Errorf("start copy to %s: %w", dst, err)
	}
	h.logger.Info("copy started", "source", src.String(), "destination", dst.String())

	return h.waitForCopy(ctx, dstSvc, dst)
}

func (h *Handler) waitForCopy(ctx context.Context, svc Service, dst URI) error {
	deadline := time.NewTimer(h.opts.copyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(h.opts.copyPollInterval)
	defer ticker.Stop()

	for {
		done, err := svc.CopyDone(ctx, dst.Container, dst.Path)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrCopyPending, dst)
		case <-ticker.C:
		}
	}
}

// CopyFromLocal uploads the local file at localPath to dstURI, replacing
// any existing blob.
func (h *Handler) CopyFromLocal(ctx context.Context, localPath, dstURI string) error {
	dst, svc, err := h.resolve(dstURI)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return svc.Upload(ctx, dst.Container, dst.Path, f)
}

// GetLocalPath downloads the blob (or every blob under the prefix) at uri
// into the handler's cache directory and returns the local path. Cached
// copies are reused when they are at least as new as the remote blob;
// force re-downloads regardless.
func (h *Handler) GetLocalPath(ctx context.Context, uri string, force bool) (string, error) {
	u, svc, err := h.resolve(uri)
	if err != nil {
		return "", err
	}

	if _, err := svc.Properties(ctx, u.Container, u.Path); err == nil {
		return h.fetchBlob(ctx, svc, u, u.Path, force)
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	// Not a blob: treat it as a prefix and mirror everything beneath it.
	prefix := dirPrefix(u.Path)
	names, err := svc.List(ctx, u.Container, prefix)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, u)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.downloadWorkers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			_, err := h.fetchBlob(gctx, svc, u, name, force)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return h.cache.Path(cacheKey(u, u.Path)), nil
}

// fetchBlob mirrors one blob into the cache and returns the local path.
func (h *Handler) fetchBlob(ctx context.Context, svc Service, u URI, name string, force bool) (string, error) {
	props, err := svc.Properties(ctx, u.Container, name)
	if err != nil {
		return "", err
	}
	return h.cache.Fetch(ctx, cacheKey(u, name), props.LastModified, force, func(w io.Writer) error {
		stream, err := blobio.NewReadStream(ctx, svc.Blob(u.Container, name), h.streamOptions()...)
		if err != nil {
			return err
		}
		defer stream.Close()
		_, err = stream.WriteTo(w)
		return err
	})
}

// Close drains all pending asynchronous writes and releases every cached
// Service. The handler is unusable afterwards.
func (h *Handler) Close() error {
	err := h.manager.JoinAll()

	h.mu.Lock()
	h.closed = true
	services := h.services
	h.services = nil
	h.mu.Unlock()

	for account, svc := range services {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close service %q: %w", account, cerr)
		}
	}
	return err
}

// dirPrefix normalizes a path into a listing prefix: non-empty paths get
// a trailing slash so "foo" does not match "foobar".
func dirPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// cacheKey maps a blob to its location under the cache root, mirroring
// the remote account/container/path layout.
func cacheKey(u URI, name string) string {
	return path.Join(u.Account, u.Container, name)
}
