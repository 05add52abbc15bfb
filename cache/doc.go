// Package cache materializes remote blobs on the local filesystem.
//
// Entries are keyed by blob path and stored as plain files under a root
// directory, so cached paths can be handed straight to code that expects
// native file I/O. Downloads land in a temporary sibling file and are
// renamed into place, keeping partially written entries invisible.
// Concurrent fetches of the same key are collapsed into a single download.
//
// A cached entry is reused while its modification time is at least as new
// as the remote blob's; otherwise it is re-downloaded. The cache never
// evicts — it mirrors read-only resources whose lifecycle is managed by
// the caller.
package cache
