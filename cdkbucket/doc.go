// Package cdkbucket provides pathy bucket clients backed by the Go CDK's
// portable blob API, for buckets that live on the local filesystem or in
// memory.
//
// # Usage
//
// With the "file" scheme, every bucket is a directory directly under a root
// directory, given by pathy.Credentials.Root (see pathy.FileCredentialsFromEnv).
// Blob keys map to files beneath the bucket directory.
//
// With the "mem" scheme, buckets are held in memory by the client, and are
// discarded when the client is closed. This is mostly useful for tests.
//
// Copies between two blobs in the same bucket are done by the Go CDK; copies
// between buckets stream the content through the client.
package cdkbucket
