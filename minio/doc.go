// Package minio implements the iopath.Service transport for MinIO and
// other S3-compatible endpoints using the minio-go SDK.
//
// It drives the low-level Core API so block-staged writes map onto
// multipart uploads part by part, mirroring the s3 package. Containers
// map to buckets and blob paths to object keys.
package minio
