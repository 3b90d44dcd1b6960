// Package gcsbucket provides a pathy bucket client for Google Cloud Storage.
//
// # Usage
//
// Paths use the "gs" scheme: gs://bucket/key. Clients are usually constructed
// by a pathy.Registry through Provider, from these pathy.Credentials fields:
//
//   - Project: the project used to list and create buckets. When empty, the
//     project of the Application Default Credentials is used.
//   - Anonymous: when true, requests are not authenticated. Only public
//     buckets can be read.
//   - Endpoint: an alternate endpoint, such as a storage emulator's host.
//
// Otherwise, Application Default Credentials are used.
package gcsbucket
