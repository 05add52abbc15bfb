package blobio

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ReadStream is a read-only byte stream over one blob. It keeps a single
// active chunk and a cursor into it, advancing the backend chunk sequence
// exactly once whenever the active chunk is absent or fully consumed.
//
// ReadStream is not seekable and consumes the blob strictly forward. It is
// not safe for concurrent use.
type ReadStream struct {
	ctx    context.Context
	blob   Blob
	chunks ChunkIterator
	size   int64 // configured transfer size, used by WriteTo

	chunk  []byte
	pos    int
	eof    bool
	closed bool

	logger *slog.Logger
}

// NewReadStream opens blob for reading. The download is opened eagerly; the
// returned stream serves bytes from lazily fetched chunks. ctx governs the
// open call and every subsequent chunk fetch.
func NewReadStream(ctx context.Context, blob Blob, opts ...Option) (*ReadStream, error) {
	cfg := newConfig(opts)

	chunks, err := blob.Chunks(ctx, cfg.bufferSize)
	if err != nil {
		return nil, err
	}

	return &ReadStream{
		ctx:    ctx,
		blob:   blob,
		chunks: chunks,
		size:   cfg.bufferSize,
		logger: cfg.logger,
	}, nil
}

// advance fetches the next chunk and resets the cursor. Returns io.EOF once
// the sequence is exhausted; backend errors propagate untranslated.
func (s *ReadStream) advance() error {
	chunk, err := s.chunks.Next(s.ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.eof = true
		}
		return err
	}
	s.logger.Debug("read next chunk",
		"blob", s.blob.Name(),
		"length", len(chunk),
	)
	s.chunk = chunk
	s.pos = 0
	return nil
}

// Read returns up to len(p) bytes from the active chunk, fetching the next
// chunk first when the active one is consumed. Reads may return fewer bytes
// than requested whenever the chunk itself is shorter; callers loop to fill
// larger buffers. At end of data Read returns (0, io.EOF). A zero-length
// read returns (0, nil) without touching the network.
func (s *ReadStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.eof {
		return 0, io.EOF
	}

	if s.chunk == nil || s.pos >= len(s.chunk) {
		if err := s.advance(); err != nil {
			return 0, err
		}
	}

	n := copy(p, s.chunk[s.pos:])
	s.pos += n
	return n, nil
}

// WriteTo drains the stream into w. This is the bulk-copy fast path used
// when materializing a whole blob: chunks are written to w directly, with
// no intermediate copy.
func (s *ReadStream) WriteTo(w io.Writer) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	var total int64
	for {
		if s.chunk == nil || s.pos >= len(s.chunk) {
			if err := s.advance(); err != nil {
				if errors.Is(err, io.EOF) {
					return total, nil
				}
				return total, err
			}
		}
		n, err := w.Write(s.chunk[s.pos:])
		s.pos += n
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// Close releases the stream. No further network calls are issued; chunks
// already buffered are discarded.
func (s *ReadStream) Close() error {
	s.closed = true
	s.chunk = nil
	return nil
}
