package minio

import (
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilweee/iopath"
)

func TestSplitSource(t *testing.T) {
	bucket, key, err := splitSource("mybucket/dir/file.bin")
	require.NoError(t, err)
	assert.Equal(t, "mybucket", bucket)
	assert.Equal(t, "dir/file.bin", key)

	for _, src := range []string{"", "nokey", "/leading", "trailing/"} {
		_, _, err := splitSource(src)
		require.Error(t, err, src)
	}
}

func TestAuthURLRoundTripsThroughSplitSource(t *testing.T) {
	store := NewStore(nil)
	bucket, key, err := splitSource(store.AuthURL("b", "x/y.bin"))
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "x/y.bin", key)
}

func TestMapErr(t *testing.T) {
	for _, code := range []string{"NoSuchKey", "NotFound", "NoSuchBucket"} {
		err := mapErr(minio.ErrorResponse{Code: code}, "b", "k")
		require.ErrorIs(t, err, iopath.ErrNotFound, code)
		assert.Contains(t, err.Error(), "b/k")
	}

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	assert.NotErrorIs(t, mapErr(denied, "b", "k"), iopath.ErrNotFound)
}

func TestBlob_Name(t *testing.T) {
	b := NewStore(nil).Blob("bucket", "dir/obj")
	assert.Equal(t, "bucket/dir/obj", b.Name())
}
