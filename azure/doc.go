// Package azure implements the iopath.Service transport over Azure Blob
// Storage using the official azblob SDK.
//
// Reads are served as ranged GETs so streams never hold more than one
// chunk in memory; writes go through the block protocol (StageBlock and
// CommitBlockList), matching the blobio stream contract. Authentication
// uses shared-access-signature tokens supplied by an iopath.TokenProvider.
package azure
