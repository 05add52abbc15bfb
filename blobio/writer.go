package blobio

import (
	"bytes"
	"context"
	"log/slog"
)

// WriteStream is a write-only byte stream over one blob. Writes accumulate
// in an in-memory buffer of at most one block; full buffers are staged as
// named blocks, and Close commits the ordered block list, finalizing the
// blob. Until that commit the blob has no visible bytes.
//
// WriteStream is not safe for concurrent use.
type WriteStream struct {
	ctx       context.Context
	blob      Blob
	blockSize int64

	buf       bytes.Buffer
	nextIndex int
	blocks    []BlockID
	closed    bool

	logger *slog.Logger
}

// NewWriteStream opens blob for writing with an empty buffer. Nothing is
// sent to the backend until the first flush. ctx governs all subsequent
// staging and commit calls.
func NewWriteStream(ctx context.Context, blob Blob, opts ...Option) *WriteStream {
	cfg := newConfig(opts)
	return &WriteStream{
		ctx:       ctx,
		blob:      blob,
		blockSize: cfg.bufferSize,
		logger:    cfg.logger,
	}
}

// Write buffers p, staging the current buffer as a block first whenever
// appending would grow it past the block size. A single write larger than
// the block size is kept intact in one block; long writes are never split.
// Write only fails when a rollover flush fails.
func (s *WriteStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.buf.Len() > 0 && int64(s.buf.Len())+int64(len(p)) > s.blockSize {
		if err := s.Flush(); err != nil {
			return 0, err
		}
	}
	return s.buf.Write(p)
}

// Flush stages the buffered bytes as a new block and appends its ID to the
// commit list. Flushing an empty buffer is a no-op. Backend errors
// propagate untranslated; the buffer is kept so a caller may retry.
func (s *WriteStream) Flush() error {
	if s.closed {
		return ErrClosed
	}
	return s.flush()
}

func (s *WriteStream) flush() error {
	if s.buf.Len() == 0 {
		return nil
	}

	id, err := NewBlockID(s.nextIndex)
	if err != nil {
		return err
	}

	s.logger.Debug("staging block",
		"blob", s.blob.Name(),
		"block_id", id.String(),
		"index", s.nextIndex,
		"length", s.buf.Len(),
	)
	if err := s.blob.StageBlock(s.ctx, id, s.buf.Bytes()); err != nil {
		return err
	}

	s.blocks = append(s.blocks, id)
	s.nextIndex++
	s.buf.Reset()
	return nil
}

// Close flushes any buffered bytes and, if at least one block was staged,
// commits the block list in stage order. After a successful Close the blob
// is durably visible with exactly the written bytes. Closing a stream that
// never received bytes commits nothing. Close is idempotent.
func (s *WriteStream) Close() error {
	if s.closed {
		return nil
	}
	if err := s.flush(); err != nil {
		return err
	}

	if len(s.blocks) > 0 {
		s.logger.Debug("committing blocks",
			"blob", s.blob.Name(),
			"count", len(s.blocks),
		)
		if err := s.blob.CommitBlocks(s.ctx, s.blocks); err != nil {
			return err
		}
	}
	s.closed = true
	return nil
}

// BlockCount reports how many blocks have been staged so far.
func (s *WriteStream) BlockCount() int { return len(s.blocks) }
