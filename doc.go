// Package pathy provides paths for cloud object storage, with a common driver
// contract over Azure Blob Storage, Amazon S3, Google Cloud Storage, and local
// or in-memory buckets.
//
// A path has the form scheme://bucket/key. The scheme selects a BucketClient
// through a Registry; the bucket and key are passed to the client verbatim.
// Directories are implicit: a path is a directory when at least one blob key
// starts with it.
//
// Backends live in their own packages (azurebucket, s3bucket, gcsbucket and
// cdkbucket), and are registered with a Registry by their ClientProviders. The
// autobucket package registers all of them at once:
//
//	reg := pathy.NewRegistry()
//	autobucket.Register(reg)
//
//	p, err := reg.New("s3://my-bucket/reports/2024.csv")
//	if err != nil {
//		return err
//	}
//
//	data, err := p.ReadBytes(ctx)
//
// Errors returned by clients and buckets always match exactly one of
// ErrNotFound, ErrAlreadyExists, ErrInvalidName and ErrBackend with
// errors.Is. The native error stays reachable with errors.As.
package pathy
