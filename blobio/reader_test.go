package blobio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadStream_ExactBytesAcrossChunkShapes(t *testing.T) {
	content := []byte("the quick brown fox jumps over the lazy dog")

	chunkShapes := [][]int{
		{len(content)},
		{1, len(content) - 1},
		{10, 10, 10, 10, 3},
		{5, 0, 5, 0, len(content) - 10},
	}
	requestSizes := []int{1, 3, 7, 64}

	for _, lens := range chunkShapes {
		for _, req := range requestSizes {
			store := NewMemStore()
			store.Put("fox.txt", content)
			blob := store.Blob("fox.txt")
			blob.SetChunkLengths(lens...)

			rs, err := NewReadStream(context.Background(), blob, WithBufferSize(8))
			require.NoError(t, err)

			var got []byte
			buf := make([]byte, req)
			for {
				n, err := rs.Read(buf)
				got = append(got, buf[:n]...)
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
			}
			require.Equal(t, content, got)
			require.NoError(t, rs.Close())
		}
	}
}

func TestReadStream_ShortReadsPerChunk(t *testing.T) {
	store := NewMemStore()
	store.Put("blob", []byte("aaabbb"))
	blob := store.Blob("blob")
	blob.SetChunkLengths(3, 3)

	rs, err := NewReadStream(context.Background(), blob)
	require.NoError(t, err)
	defer rs.Close()

	// A large request is served from the current chunk only.
	buf := make([]byte, 10)
	n, err := rs.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "aaa", string(buf[:n]))

	n, err = rs.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "bbb", string(buf[:n]))

	_, err = rs.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadStream_ZeroLengthReadFetchesNothing(t *testing.T) {
	store := NewMemStore()
	store.Put("blob", []byte("data"))
	blob := store.Blob("blob")

	rs, err := NewReadStream(context.Background(), blob)
	require.NoError(t, err)
	defer rs.Close()

	n, err := rs.Read(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, blob.ChunkFetches)
}

func TestReadStream_EmptyBlob(t *testing.T) {
	store := NewMemStore()
	blob := store.Blob("missing")

	rs, err := NewReadStream(context.Background(), blob)
	require.NoError(t, err)
	defer rs.Close()

	n, err := rs.Read(make([]byte, 8))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)

	// Exhaustion is sticky.
	_, err = rs.Read(make([]byte, 8))
	require.ErrorIs(t, err, io.EOF)
}

func TestReadStream_WriteTo(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 100)
	store := NewMemStore()
	store.Put("blob", content)
	blob := store.Blob("blob")

	rs, err := NewReadStream(context.Background(), blob, WithBufferSize(64))
	require.NoError(t, err)
	defer rs.Close()

	var sink bytes.Buffer
	n, err := rs.WriteTo(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), n)
	require.Equal(t, content, sink.Bytes())

	// 1000 bytes at 64-byte transfer size: 16 fetches.
	require.Equal(t, 16, blob.ChunkFetches)
}

func TestReadStream_SingleFetchPerChunk(t *testing.T) {
	store := NewMemStore()
	store.Put("blob", []byte("abcdef"))
	blob := store.Blob("blob")
	blob.SetChunkLengths(6)

	rs, err := NewReadStream(context.Background(), blob)
	require.NoError(t, err)
	defer rs.Close()

	buf := make([]byte, 2)
	for _i := 0; _i < 3; _i++ {
		_, err := rs.Read(buf)
		require.NoError(t, err)
	}
	require.Equal(t, 1, blob.ChunkFetches)
}

func TestReadStream_UseAfterClose(t *testing.T) {
	store := NewMemStore()
	store.Put("blob", []byte("data"))

	rs, err := NewReadStream(context.Background(), store.Blob("blob"))
	require.NoError(t, err)
	require.NoError(t, rs.Close())

	_, err = rs.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrClosed)
}
