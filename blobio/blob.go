package blobio

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultBufferSize is the chunk/block size used when no override is
	// given: 50 MiB, matching the service-side default transfer size.
	DefaultBufferSize int64 = 50 * 1024 * 1024
)

// ErrClosed is returned by stream operations after Close.
var ErrClosed = errors.New("blobio: stream closed")

// ChunkIterator yields successive chunks of a blob's content. Chunk sizes
// are backend-determined; a chunk is fetched with a single network round
// trip. Next returns io.EOF once the sequence is exhausted.
type ChunkIterator interface {
	Next(ctx context.Context) ([]byte, error)
}

// Blob is a backend handle for a single stored object. It exposes exactly
// the two capabilities the stream adapters need: opening a chunked download
// and staging/committing named blocks. Implementations must not retain the
// data slice passed to StageBlock beyond the call.
type Blob interface {
	// Name identifies the blob for logging.
	Name() string

	// Chunks opens a download of the blob as a lazy chunk sequence.
	// chunkSize is a hint for the per-fetch transfer size.
	Chunks(ctx context.Context, chunkSize int64) (ChunkIterator, error)

	// StageBlock uploads data as an uncommitted block under the given ID.
	StageBlock(ctx context.Context, id BlockID, data []byte) error

	// CommitBlocks finalizes the blob from previously staged blocks.
	// The blob's content is the concatenation of the blocks in list order.
	CommitBlocks(ctx context.Context, ids []BlockID) error
}

// Properties describes a stored blob. Returned by store-level lookups, not
// by the streams themselves.
type Properties struct {
	Size         int64
	LastModified time.Time
}
