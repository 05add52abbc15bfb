package iopath

import (
	"context"
	"io"

	"github.com/nikhilweee/iopath/blobio"
)

// Service is the transport client a Handler drives for one storage
// account. The azure package implements it over the Azure Blob Storage
// SDK; tests use in-memory fakes. Implementations must be safe for
// concurrent use, per their SDK's own concurrency contract — the handler
// adds no locking around them beyond caching one Service per account.
type Service interface {
	// Blob returns the stream-capable handle for a single object.
	Blob(container, path string) blobio.Blob

	// Properties fetches blob metadata. Absent blobs yield an error
	// satisfying errors.Is(err, ErrNotFound).
	Properties(ctx context.Context, container, path string) (blobio.Properties, error)

	// List returns the names of all blobs whose path starts with prefix.
	List(ctx context.Context, container, prefix string) ([]string, error)

	// Delete removes a single blob.
	Delete(ctx context.Context, container, path string) error

	// Upload writes body as the blob's full content in one shot, replacing
	// anything already there.
	Upload(ctx context.Context, container, path string, body io.Reader) error

	// StartCopy begins a server-side copy from an authenticated source URL.
	StartCopy(ctx context.Context, container, path, sourceURL string) error

	// CopyDone reports whether the last copy targeting the blob has left
	// the pending state.
	CopyDone(ctx context.Context, container, path string) (bool, error)

	// AuthURL returns a URL for the blob that embeds read authorization,
	// suitable as a cross-account copy source.
	AuthURL(container, path string) string

	// Close releases any sockets the transport may have opened.
	Close() error
}

// ServiceFactory creates the Service for a storage account. Factories are
// how transport packages plug into a Handler without the handler importing
// any SDK.
type ServiceFactory func(account string) (Service, error)
