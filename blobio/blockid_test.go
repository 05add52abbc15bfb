package blobio

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBlockID_Encoding(t *testing.T) {
	id, err := NewBlockID(0)
	require.NoError(t, err)
	require.Equal(t, base64.URLEncoding.EncodeToString([]byte("00000")), id.String())

	id, err = NewBlockID(49999)
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(id.String())
	require.NoError(t, err)
	require.Equal(t, "49999", string(raw))
}

func TestNewBlockID_FixedLength(t *testing.T) {
	first, err := NewBlockID(0)
	require.NoError(t, err)

	for _, index := range []int{1, 9, 10, 99, 100, 12345, 49999} {
		id, err := NewBlockID(index)
		require.NoError(t, err)
		require.Len(t, id.String(), len(first.String()))
	}
}

func TestNewBlockID_CapacityLimit(t *testing.T) {
	_, err := NewBlockID(MaxBlocks)
	require.ErrorIs(t, err, ErrTooManyBlocks)

	_, err = NewBlockID(-1)
	require.ErrorIs(t, err, ErrTooManyBlocks)
}

func TestBlockID_Index(t *testing.T) {
	for _, index := range []int{0, 7, 42, 49999} {
		id, err := NewBlockID(index)
		require.NoError(t, err)

		decoded, err := id.Index()
		require.NoError(t, err)
		require.Equal(t, index, decoded)
	}

	_, err := BlockID("not base64!").Index()
	require.Error(t, err)
}
