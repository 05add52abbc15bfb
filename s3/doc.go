// Package s3 implements the iopath.Service transport over Amazon S3 (and
// S3-compatible endpoints) using the AWS SDK v2.
//
// Containers map to buckets and blob paths to object keys. Block-staged
// writes are expressed as multipart uploads: each staged block becomes an
// uploaded part and the commit becomes CompleteMultipartUpload. Note that
// S3 rejects parts smaller than 5 MiB except the last one, so write
// streams should keep the default buffer size or larger.
package s3
