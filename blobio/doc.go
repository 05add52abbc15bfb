// Package blobio adapts chunk- and block-oriented blob backends to Go's
// byte-stream interfaces.
//
// Remote object stores do not expose files: downloads arrive as a lazy
// sequence of chunks, and uploads are staged as individually named blocks
// that only become a blob once an ordered block list is committed. The two
// stream types in this package hide that protocol:
//
//   - ReadStream implements io.Reader and io.WriterTo over the chunk
//     sequence of one blob.
//   - WriteStream implements io.Writer over the stage/commit block model,
//     buffering up to one block in memory and finalizing the blob on Close.
//
// Both types drive a backend through the narrow Blob interface, so any
// store that can serve chunked downloads and named-block uploads can sit
// behind them. Adapters for Azure Blob Storage, Amazon S3 and MinIO live in
// their own packages; MemBlob provides an in-memory implementation for
// tests.
//
// Streams are not safe for concurrent use. Each open stream owns exactly
// one backend handle and issues no network calls after Close.
package blobio
