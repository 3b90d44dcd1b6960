// Package s3bucket provides a pathy bucket client for Amazon S3 and
// S3-compatible object stores, using the AWS SDK for Go v2.
//
// # Usage
//
// Paths use the "s3" scheme: s3://bucket/key. Clients are usually constructed
// by a pathy.Registry through Provider, from these pathy.Credentials fields:
//
//   - Region: the AWS region. When empty, the SDK's default configuration is
//     used, and then the EC2 instance metadata service.
//   - Endpoint: an alternate endpoint URL (for S3-compatible stores).
//   - Anonymous: when true, requests are not signed.
//   - PathStyle: when true, path-style addressing is used.
//
// Access keys are resolved by the SDK's default credential chain.
//
// Blobs are buffered in memory while being written, and are uploaded with a
// single PutObject call when the writer is closed.
package s3bucket
