package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/nikhilweee/iopath"
	"github.com/nikhilweee/iopath/blobio"
)

// Store implements iopath.Service for MinIO. Containers are buckets and
// blob paths are object keys; the account component of URIs is ignored
// because the endpoint is fixed at construction.
type Store struct {
	core   *minio.Core
	logger *slog.Logger
}

type storeOptions struct {
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewStore creates a store on top of a Core client. Core exposes the
// multipart primitives the block protocol needs; its embedded Client
// serves everything else.
func NewStore(core *minio.Core, opts ...Option) *Store {
	o := storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{core: core, logger: o.logger}
}

// NewFactory adapts the store into an iopath.ServiceFactory. Every
// account resolves to the same store since the endpoint is fixed.
func NewFactory(core *minio.Core, opts ...Option) iopath.ServiceFactory {
	return func(account string) (iopath.Service, error) {
		return NewStore(core, opts...), nil
	}
}

// Blob returns the stream-capable handle for one object.
func (s *Store) Blob(bucket, key string) blobio.Blob {
	return &minioBlob{core: s.core, bucket: bucket, key: key}
}

// Properties fetches object size and last-modified time. Absent objects
// map to iopath.ErrNotFound.
func (s *Store) Properties(ctx context.Context, bucket, key string) (blobio.Properties, error) {
	info, err := s.core.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return blobio.Properties{}, mapErr(err, bucket, key)
	}
	return blobio.Properties{Size: info.Size, LastModified: info.LastModified}, nil
}

// List returns the keys of all objects under prefix.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.core.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s/%s: %w", bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Delete removes one object. Deleting an absent object is not an error.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	return s.core.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// Upload replaces the object's content with body as a streamed put of
// unknown length.
func (s *Store) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := s.core.Client.PutObject(ctx, bucket, key, body, -1, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio: upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// StartCopy performs the copy immediately; the SDK's CopyObject is
// synchronous.
func (s *Store) StartCopy(ctx context.Context, bucket, key, sourceURL string) error {
	srcBucket, srcKey, err := splitSource(sourceURL)
	if err != nil {
		return err
	}
	_, err = s.core.Client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: key},
		minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("minio: copy %s to %s/%s: %w", sourceURL, bucket, key, err)
	}
	return nil
}

// CopyDone always reports true: StartCopy completes before returning.
func (s *Store) CopyDone(ctx context.Context, bucket, key string) (bool, error) {
	return true, nil
}

// AuthURL returns the bucket/key form splitSource understands.
// Authorization rides on the client's credentials, not the URL.
func (s *Store) AuthURL(bucket, key string) string {
	return bucket + "/" + key
}

// Close is a no-op; the SDK client holds no resources beyond pooled HTTP
// connections.
func (s *Store) Close() error { return nil }

func splitSource(sourceURL string) (bucket, key string, err error) {
	parts := strings.SplitN(sourceURL, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("minio: malformed copy source %q (want bucket/key)", sourceURL)
	}
	return parts[0], parts[1], nil
}

func mapErr(err error, bucket, key string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.Code == "NoSuchBucket" {
		return fmt.Errorf("%w: %s/%s", iopath.ErrNotFound, bucket, key)
	}
	return err
}

// minioBlob adapts one object to the blobio.Blob interface. Reads are
// ranged GETs; writes stage parts of a multipart upload created lazily on
// the first block.
type minioBlob struct {
	core   *minio.Core
	bucket string
	key    string

	mu       sync.Mutex
	uploadID string
	etags    map[blobio.BlockID]string
}

func (b *minioBlob) Name() string { return b.bucket + "/" + b.key }

// Chunks returns a ranged-GET iterator over the object.
func (b *minioBlob) Chunks(ctx context.Context, chunkSize int64) (blobio.ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("minio: non-positive chunk size %d", chunkSize)
	}
	return &rangeChunks{blob: b, chunkSize: chunkSize}, nil
}

// StageBlock uploads data as one part, numbered by the block's index plus
// one.
func (b *minioBlob) StageBlock(ctx context.Context, id blobio.BlockID, data []byte) error {
	index, err := id.Index()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.uploadID == "" {
		uploadID, err := b.core.NewMultipartUpload(ctx, b.bucket, b.key, minio.PutObjectOptions{})
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("minio: create multipart upload for %s: %w", b.Name(), err)
		}
		b.uploadID = uploadID
		b.etags = make(map[blobio.BlockID]string)
	}
	uploadID := b.uploadID
	b.mu.Unlock()

	part, err := b.core.PutObjectPart(ctx, b.bucket, b.key, uploadID, index+1,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectPartOptions{})
	if err != nil {
		return fmt.Errorf("minio: upload part %d of %s: %w", index+1, b.Name(), err)
	}

	b.mu.Lock()
	b.etags[id] = part.ETag
	b.mu.Unlock()
	return nil
}

// CommitBlocks completes the multipart upload with the listed blocks in
// order.
func (b *minioBlob) CommitBlocks(ctx context.Context, ids []blobio.BlockID) error {
	b.mu.Lock()
	uploadID := b.uploadID
	etags := b.etags
	b.mu.Unlock()

	if uploadID == "" {
		return fmt.Errorf("minio: commit of %s without staged blocks", b.Name())
	}

	parts := make([]minio.CompletePart, 0, len(ids))
	for _, id := range ids {
		index, err := id.Index()
		if err != nil {
			return err
		}
		etag, ok := etags[id]
		if !ok {
			return fmt.Errorf("minio: commit references unstaged block %q of %s", id, b.Name())
		}
		parts = append(parts, minio.CompletePart{PartNumber: index + 1, ETag: etag})
	}

	_, err := b.core.CompleteMultipartUpload(ctx, b.bucket, b.key, uploadID, parts, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio: complete multipart upload of %s: %w", b.Name(), err)
	}
	return nil
}

// Abort discards a multipart upload started by StageBlock.
func (b *minioBlob) Abort(ctx context.Context) error {
	b.mu.Lock()
	uploadID := b.uploadID
	b.uploadID = ""
	b.etags = nil
	b.mu.Unlock()

	if uploadID == "" {
		return nil
	}
	return b.core.AbortMultipartUpload(ctx, b.bucket, b.key, uploadID)
}

// rangeChunks fetches the object in chunkSize ranged GETs, resolving the
// object size on the first call.
type rangeChunks struct {
	blob      *minioBlob
	chunkSize int64
	offset    int64
	resolved  bool
	size      int64
}

func (c *rangeChunks) Next(ctx context.Context) ([]byte, error) {
	if !c.resolved {
		info, err := c.blob.core.Client.StatObject(ctx, c.blob.bucket, c.blob.key, minio.StatObjectOptions{})
		if err != nil {
			return nil, mapErr(err, c.blob.bucket, c.blob.key)
		}
		c.size = info.Size
		c.resolved = true
	}
	if c.offset >= c.size {
		return nil, io.EOF
	}

	end := min(c.offset+c.chunkSize, c.size) - 1
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(c.offset, end); err != nil {
		return nil, err
	}

	obj, err := c.blob.core.Client.GetObject(ctx, c.blob.bucket, c.blob.key, opts)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	chunk := make([]byte, end-c.offset+1)
	if _, err := io.ReadFull(obj, chunk); err != nil {
		return nil, err
	}
	c.offset += int64(len(chunk))
	return chunk, nil
}
