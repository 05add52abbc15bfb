package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nikhilweee/iopath"
	"github.com/nikhilweee/iopath/blobio"
)

// Store implements iopath.Service for S3. Containers are buckets and blob
// paths are object keys; the account component of URIs is ignored because
// bucket names are global.
type Store struct {
	client   Client
	uploader *manager.Uploader
	logger   *slog.Logger
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

// NewStore creates a store on top of an S3 client.
func NewStore(client Client, opts ...Option) *Store {
	o := storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		logger:   o.logger,
	}
}

// NewFactory adapts the store into an iopath.ServiceFactory. Every
// account resolves to the same store since S3 bucket names are global.
func NewFactory(client Client, opts ...Option) iopath.ServiceFactory {
	return func(account string) (iopath.Service, error) {
		return NewStore(client, opts...), nil
	}
}

// Blob returns the stream-capable handle for one object.
func (s *Store) Blob(bucket, key string) blobio.Blob {
	return &s3Blob{
		client: s.client,
		bucket: bucket,
		key:    key,
	}
}

// Properties fetches object size and last-modified time. Absent objects
// map to iopath.ErrNotFound.
func (s *Store) Properties(ctx context.Context, bucket, key string) (blobio.Properties, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return blobio.Properties{}, mapErr(err, bucket, key)
	}
	props := blobio.Properties{}
	if head.ContentLength != nil {
		props.Size = *head.ContentLength
	}
	if head.LastModified != nil {
		props.LastModified = *head.LastModified
	}
	return props, nil
}

// List returns the keys of all objects under prefix.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// Delete removes one object.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// Upload replaces the object's content with body, letting the transfer
// manager pick between single-shot and multipart.
func (s *Store) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("s3: upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// StartCopy performs the copy immediately; S3's CopyObject is synchronous
// for objects the API accepts in one call.
func (s *Store) StartCopy(ctx context.Context, bucket, key, sourceURL string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		CopySource: aws.String(sourceURL),
	})
	if err != nil {
		return fmt.Errorf("s3: copy %s to %s/%s: %w", sourceURL, bucket, key, err)
	}
	return nil
}

// CopyDone always reports true: StartCopy completes before returning.
func (s *Store) CopyDone(ctx context.Context, bucket, key string) (bool, error) {
	return true, nil
}

// AuthURL returns the bucket/key form CopyObject expects as a copy
// source. Authorization rides on the client's credentials, not the URL.
func (s *Store) AuthURL(bucket, key string) string {
	u := url.URL{Path: bucket + "/" + key}
	return u.EscapedPath()
}

// Close is a no-op; the SDK client holds no resources beyond pooled HTTP
// connections.
func (s *Store) Close() error { return nil }

func mapErr(err error, bucket, key string) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s/%s", iopath.ErrNotFound, bucket, key)
	}
	return err
}

// s3Blob adapts one object to the blobio.Blob interface. Reads are ranged
// GETs; writes stage parts of a multipart upload created lazily on the
// first block.
type s3Blob struct {
	client Client
	bucket string
	key    string

	mu       sync.Mutex
	uploadID string
	etags    map[blobio.BlockID]string
}

func (b *s3Blob) Name() string { return b.bucket + "/" + b.key }

// Chunks returns a ranged-GET iterator over the object.
func (b *s3Blob) Chunks(ctx context.Context, chunkSize int64) (blobio.ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("s3: non-positive chunk size %d", chunkSize)
	}
	return &rangeChunks{blob: b, chunkSize: chunkSize}, nil
}

// StageBlock uploads data as one part. The part number is the block's
// index plus one, so the commit order of blobio maps directly onto S3's
// part numbering.
func (b *s3Blob) StageBlock(ctx context.Context, id blobio.BlockID, data []byte) error {
	index, err := id.Index()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.uploadID == "" {
		resp, err := b.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key),
		})
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("s3: create multipart upload for %s: %w", b.Name(), err)
		}
		b.uploadID = aws.ToString(resp.UploadId)
		b.etags = make(map[blobio.BlockID]string)
	}
	uploadID := b.uploadID
	b.mu.Unlock()

	part, err := b.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(b.key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(index) + 1),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3: upload part %d of %s: %w", index+1, b.Name(), err)
	}

	b.mu.Lock()
	b.etags[id] = aws.ToString(part.ETag)
	b.mu.Unlock()
	return nil
}

// CommitBlocks completes the multipart upload with the listed blocks in
// order.
func (b *s3Blob) CommitBlocks(ctx context.Context, ids []blobio.BlockID) error {
	b.mu.Lock()
	uploadID := b.uploadID
	etags := b.etags
	b.mu.Unlock()

	if uploadID == "" {
		return fmt.Errorf("s3: commit of %s without staged blocks", b.Name())
	}

	parts := make([]types.CompletedPart, 0, len(ids))
	for _, id := range ids {
		index, err := id.Index()
		if err != nil {
			return err
		}
		etag, ok := etags[id]
		if !ok {
			return fmt.Errorf("s3: commit references unstaged block %q of %s", id, b.Name())
		}
		parts = append(parts, types.CompletedPart{
			ETag:       aws.String(etag),
			PartNumber: aws.Int32(int32(index) + 1),
		})
	}

	_, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(b.key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return fmt.Errorf("s3: complete multipart upload of %s: %w", b.Name(), err)
	}
	return nil
}

// Abort discards a multipart upload started by StageBlock. Callers that
// abandon a write stream should abort to stop paying for staged parts.
func (b *s3Blob) Abort(ctx context.Context) error {
	b.mu.Lock()
	uploadID := b.uploadID
	b.uploadID = ""
	b.etags = nil
	b.mu.Unlock()

	if uploadID == "" {
		return nil
	}
	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(b.key),
		UploadId: aws.String(uploadID),
	})
	return err
}

// rangeChunks fetches the object in chunkSize ranged GETs, resolving the
// object size on the first call.
type rangeChunks struct {
	blob      *s3Blob
	chunkSize int64
	offset    int64
	resolved  bool
	size      int64
}

func (c *rangeChunks) Next(ctx context.Context) ([]byte, error) {
	if !c.resolved {
		head, err := c.blob.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.blob.bucket),
			Key:    aws.String(c.blob.key),
		})
		if err != nil {
			return nil, mapErr(err, c.blob.bucket, c.blob.key)
		}
		c.size = aws.ToInt64(head.ContentLength)
		c.resolved = true
	}
	if c.offset >= c.size {
		return nil, io.EOF
	}

	end := min(c.offset+c.chunkSize, c.size) - 1
	resp, err := c.blob.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.blob.bucket),
		Key:    aws.String(c.blob.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", c.offset, end)),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	chunk, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.offset += int64(len(chunk))
	return chunk, nil
}
