package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/nikhilweee/iopath"
	"github.com/nikhilweee/iopath/blobio"
)

// Store implements iopath.Service for one Azure storage account. The
// underlying SDK client is safe for concurrent use, so one Store serves
// all goroutines touching the account.
type Store struct {
	account string
	sas     string
	client  *service.Client
	logger  *slog.Logger
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

// NewStore connects to a storage account using a SAS token. The token may
// be given with or without its leading "?".
func NewStore(account, sasToken string, opts ...Option) (*Store, error) {
	o := storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	sas := strings.TrimPrefix(sasToken, "?")
	endpoint := iopath.URI{Account: account}.ServiceURL()

	client, err := service.NewClientWithNoCredential(endpoint+"?"+sas, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: connect account %q: %w", account, err)
	}
	return &Store{
		account: account,
		sas:     sas,
		client:  client,
		logger:  o.logger.With("account", account),
	}, nil
}

// NewFactory adapts a token provider into an iopath.ServiceFactory, so a
// handler can reach any account the provider has tokens for.
func NewFactory(provider iopath.TokenProvider, opts ...Option) iopath.ServiceFactory {
	return func(account string) (iopath.Service, error) {
		token, err := provider.SASToken(account)
		if err != nil {
			return nil, err
		}
		return NewStore(account, token, opts...)
	}
}

func (s *Store) blockBlob(containerName, path string) *blockblob.Client {
	return s.client.NewContainerClient(containerName).NewBlockBlobClient(path)
}

// Blob returns the stream-capable handle for one blob.
func (s *Store) Blob(containerName, path string) blobio.Blob {
	return &azureBlob{
		client: s.blockBlob(containerName, path),
		name:   containerName + "/" + path,
	}
}

// Properties fetches blob size and last-modified time. Absent blobs map to
// iopath.ErrNotFound.
func (s *Store) Properties(ctx context.Context, containerName, path string) (blobio.Properties, error) {
	resp, err := s.blockBlob(containerName, path).GetProperties(ctx, nil)
	if err != nil {
		return blobio.Properties{}, mapErr(err, containerName, path)
	}
	props := blobio.Properties{}
	if resp.ContentLength != nil {
		props.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		props.LastModified = *resp.LastModified
	}
	return props, nil
}

// List returns the names of all blobs under prefix, in the order the
// service yields them.
func (s *Store) List(ctx context.Context, containerName, prefix string) ([]string, error) {
	pager := s.client.NewContainerClient(containerName).NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list %s/%s: %w", containerName, prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// Delete removes one blob.
func (s *Store) Delete(ctx context.Context, containerName, path string) error {
	_, err := s.blockBlob(containerName, path).Delete(ctx, nil)
	if err != nil {
		return mapErr(err, containerName, path)
	}
	return nil
}

// Upload replaces the blob's content with body in a single streamed
// upload.
func (s *Store) Upload(ctx context.Context, containerName, path string, body io.Reader) error {
	_, err := s.blockBlob(containerName, path).UploadStream(ctx, body, nil)
	if err != nil {
		return fmt.Errorf("azure: upload %s/%s: %w", containerName, path, err)
	}
	return nil
}

// StartCopy begins a server-side copy from sourceURL. The service copies
// asynchronously; poll CopyDone for completion.
func (s *Store) StartCopy(ctx context.Context, containerName, path, sourceURL string) error {
	_, err := s.blockBlob(containerName, path).StartCopyFromURL(ctx, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("azure: start copy to %s/%s: %w", containerName, path, err)
	}
	return nil
}

// CopyDone reports whether the blob's last copy has left the pending
// state. Failed and aborted copies surface as errors.
func (s *Store) CopyDone(ctx context.Context, containerName, path string) (bool, error) {
	resp, err := s.blockBlob(containerName, path).GetProperties(ctx, nil)
	if err != nil {
		return false, mapErr(err, containerName, path)
	}
	if resp.CopyStatus == nil {
		return true, nil
	}
	switch *resp.CopyStatus {
	case blob.CopyStatusTypePending:
		return false, nil
	case blob.CopyStatusTypeSuccess:
		return true, nil
	default:
		desc := ""
		if resp.CopyStatusDescription != nil {
			desc = ": " + *resp.CopyStatusDescription
		}
		return false, fmt.Errorf("azure: copy to %s/%s %s%s", containerName, path, *resp.CopyStatus, desc)
	}
}

// AuthURL builds a blob URL carrying the store's SAS token, usable as a
// cross-account copy source.
func (s *Store) AuthURL(containerName, path string) string {
	return fmt.Sprintf("%s/%s/%s?%s", iopath.URI{Account: s.account}.ServiceURL(), containerName, path, s.sas)
}

// Close is a no-op; the SDK client holds no resources beyond pooled HTTP
// connections.
func (s *Store) Close() error { return nil }

// mapErr translates the SDK's not-found condition to iopath.ErrNotFound
// and passes everything else through.
func mapErr(err error, containerName, path string) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %s/%s", iopath.ErrNotFound, containerName, path)
	}
	return err
}

// azureBlob adapts one block blob to the blobio.Blob interface.
type azureBlob struct {
	client *blockblob.Client
	name   string
}

func (b *azureBlob) Name() string { return b.name }

// Chunks returns a ranged-GET iterator over the blob. The blob size is
// resolved on the first fetch, so constructing the iterator performs no
// network round trip.
func (b *azureBlob) Chunks(ctx context.Context, chunkSize int64) (blobio.ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("azure: non-positive chunk size %d", chunkSize)
	}
	return &rangeChunks{client: b.client, chunkSize: chunkSize, size: -1}, nil
}

// StageBlock uploads one block without touching the visible content.
func (b *azureBlob) StageBlock(ctx context.Context, id blobio.BlockID, data []byte) error {
	body := streaming.NopCloser(bytes.NewReader(data))
	if _, err := b.client.StageBlock(ctx, id.String(), body, nil); err != nil {
		return fmt.Errorf("azure: stage block %s of %s: %w", id, b.name, err)
	}
	return nil
}

// CommitBlocks atomically installs the listed blocks, in order, as the
// blob's content.
func (b *azureBlob) CommitBlocks(ctx context.Context, ids []blobio.BlockID) error {
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = id.String()
	}
	if _, err := b.client.CommitBlockList(ctx, list, nil); err != nil {
		return fmt.Errorf("azure: commit %d blocks of %s: %w", len(ids), b.name, err)
	}
	return nil
}

// rangeChunks fetches the blob in chunkSize ranged GETs.
type rangeChunks struct {
	client    *blockblob.Client
	chunkSize int64
	size      int64 // -1 until the first fetch resolves it
	offset    int64
}

func (c *rangeChunks) Next(ctx context.Context) ([]byte, error) {
	if c.size < 0 {
		resp, err := c.client.GetProperties(ctx, nil)
		if err != nil {
			return nil, err
		}
		if resp.ContentLength != nil {
			c.size = *resp.ContentLength
		} else {
			c.size = 0
		}
	}
	if c.offset >= c.size {
		return nil, io.EOF
	}

	count := min(c.chunkSize, c.size-c.offset)
	resp, err := c.client.DownloadStream(ctx, &blob.DownloadStreamOptions{
		Range: blob.HTTPRange{Offset: c.offset, Count: count},
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
