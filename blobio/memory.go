package blobio

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemStore is an in-memory blob backend for testing. It stores committed
// blob content keyed by name and hands out MemBlob handles. Thread-safe for
// concurrent use across blobs.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemStore creates an empty in-memory backend.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Blob returns a handle for name. The blob need not exist yet; reading an
// absent blob yields an immediately exhausted chunk sequence.
func (m *MemStore) Blob(name string) *MemBlob {
	return &MemBlob{store: m, name: name, staged: make(map[BlockID][]byte)}
}

// Put seeds committed content directly, bypassing the block protocol.
func (m *MemStore) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
}

// Delete removes the committed content of name, if any.
func (m *MemStore) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
}

// Get returns the committed content of name.
func (m *MemStore) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[name]
	return data, ok
}

// MemBlob implements Blob in memory. Staged blocks are invisible until
// CommitBlocks, mirroring the backend's visibility contract. The zero value
// is not usable; obtain handles from a MemStore.
type MemBlob struct {
	store *MemStore
	name  string

	mu        sync.Mutex
	staged    map[BlockID][]byte
	chunkLens []int

	// Call counters for assertions.
	ChunkFetches int
	StageCalls   int
	CommitCalls  int
}

func (b *MemBlob) Name() string { return b.name }

// SetChunkLengths overrides the chunk sizes served by Chunks, letting tests
// exercise arbitrary backend chunking. Lengths must sum to the content
// size; a zero-length entry yields an empty chunk.
func (b *MemBlob) SetChunkLengths(lens ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunkLens = lens
}

// Chunks serves the committed content in chunkSize pieces, or in the exact
// lengths given to SetChunkLengths.
func (b *MemBlob) Chunks(_ context.Context, chunkSize int64) (ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("blobio: non-positive chunk size %d", chunkSize)
	}
	data, _ := b.store.Get(b.name)

	b.mu.Lock()
	lens := b.chunkLens
	b.mu.Unlock()

	if lens == nil {
		for off := 0; off < len(data); off += int(chunkSize) {
			n := min(int(chunkSize), len(data)-off)
			lens = append(lens, n)
		}
	}
	return &memChunks{blob: b, data: data, lens: lens}, nil
}

// StageBlock records data under id without touching the visible content.
func (b *MemBlob) StageBlock(_ context.Context, id BlockID, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staged[id] = append([]byte(nil), data...)
	b.StageCalls++
	return nil
}

// CommitBlocks concatenates the staged blocks in list order and installs
// the result as the blob's content.
func (b *MemBlob) CommitBlocks(_ context.Context, ids []BlockID) error {
	b.mu.Lock()
	var content []byte
	for _, id := range ids {
		block, ok := b.staged[id]
		if !ok {
			b.mu.Unlock()
			return fmt.Errorf("blobio: commit references unstaged block %q", id)
		}
		content = append(content, block...)
	}
	b.CommitCalls++
	b.mu.Unlock()

	b.store.mu.Lock()
	b.store.blobs[b.name] = content
	b.store.mu.Unlock()
	return nil
}

// StagedIDs returns the IDs staged so far, in no particular order.
func (b *MemBlob) StagedIDs() []BlockID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]BlockID, 0, len(b.staged))
	for id := range b.staged {
		ids = append(ids, id)
	}
	return ids
}

type memChunks struct {
	blob *MemBlob
	data []byte
	lens []int
	idx  int
	off  int
}

func (c *memChunks) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.idx >= len(c.lens) {
		return nil, io.EOF
	}
	n := c.lens[c.idx]
	if c.off+n > len(c.data) {
		return nil, fmt.Errorf("blobio: chunk lengths exceed content size")
	}
	chunk := c.data[c.off : c.off+n]
	c.off += n
	c.idx++

	c.blob.mu.Lock()
	c.blob.ChunkFetches++
	c.blob.mu.Unlock()
	return chunk, nil
}
