// Package iopath provides a uniform, file-like interface over remote blob
// storage.
//
// Blobs are addressed by URIs of the form
//
//	az://<account>/<container>/<path...>
//
// (blob:// is accepted as an alias). A Handler resolves URIs against a
// transport service, hands out byte streams for reading and writing, and
// offers the usual path operations: Exists, IsFile, IsDir, Ls, Copy, Rm,
// and download-to-local-cache via GetLocalPath.
//
// Streams are provided by the blobio package, which adapts the backend's
// chunked downloads and staged-block uploads to io.Reader / io.Writer.
// Non-blocking writes are provided by the writeq package: OpenAsync returns
// a handle whose writes are applied in order by a background dispatcher,
// and Join is the synchronization point where their errors surface.
//
// The transport itself is pluggable. The azure, s3 and minio packages
// each implement the Service interface over their SDK; a handler takes
// whichever factory matches the deployment.
//
//	handler := iopath.NewHandler(azure.NewFactory(iopath.EnvTokenProvider{}))
//	defer handler.Close()
//
//	r, err := handler.OpenRead(ctx, "az://acct/container/data.bin")
package iopath
