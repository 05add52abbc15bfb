package blobio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

// MaxBlocks is the maximum number of blocks a single blob may be built
// from. Block-oriented backends cap committed block lists at 50000 entries,
// so the index range is 00000-49999.
const MaxBlocks = 50000

// ErrTooManyBlocks is returned when a write stream would stage a block
// beyond MaxBlocks. The index is never silently wrapped.
var ErrTooManyBlocks = errors.New("blobio: block count limit exceeded")

// BlockID is a backend block identifier: a zero-padded 5-digit decimal
// block index, URL-safe base64 encoded. All IDs of one blob have identical
// encoded length, and the commit order is carried by the block list, not by
// the IDs sorting.
type BlockID string

// NewBlockID encodes a block index as a BlockID. Indexes at or beyond
// MaxBlocks return ErrTooManyBlocks.
func NewBlockID(index int) (BlockID, error) {
	if index < 0 || index >= MaxBlocks {
		return "", fmt.Errorf("%w: block index %d outside [0, %d)", ErrTooManyBlocks, index, MaxBlocks)
	}
	raw := fmt.Sprintf("%05d", index)
	return BlockID(base64.URLEncoding.EncodeToString([]byte(raw))), nil
}

// Index decodes the block index carried by the ID.
func (id BlockID) Index() (int, error) {
	raw, err := base64.URLEncoding.DecodeString(string(id))
	if err != nil {
		return 0, fmt.Errorf("blobio: malformed block ID %q: %w", string(id), err)
	}
	index, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("blobio: malformed block ID %q: %w", string(id), err)
	}
	return index, nil
}

func (id BlockID) String() string { return string(id) }
