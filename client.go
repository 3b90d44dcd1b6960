package pathy

import (
	"context"
	"iter"
	"strings"
)

// ListBucketsOptions filters a bucket listing.
type ListBucketsOptions struct {
	// Prefix restricts the listing to buckets whose names begin with it
	Prefix string

	// PageSize is a hint for the number of buckets requested per page
	PageSize int
}

// ListBlobsOptions controls a flat blob listing.
type ListBlobsOptions struct {
	// Prefix restricts the listing to keys beginning with this string. When
	// empty, the key of the listed path is used.
	Prefix string

	// Delimiter, when set, restricts the listing to blobs with no delimiter
	// after the prefix (that is, the direct children). Common prefixes are not
	// returned by ListBlobs; use a ScanDir for those.
	Delimiter string

	// PageSize is a hint for the number of results requested per page
	PageSize int

	// Markers also lists directory-marker objects, whose keys end in Sep.
	// They are skipped by default.
	Markers bool
}

// SkipMarker reports whether a listed key is a directory marker that opts
// asks to leave out.
func SkipMarker(opts *ListBlobsOptions, key string) bool {
	return strings.HasSuffix(key, Sep) && (opts == nil || !opts.Markers)
}

// BucketClient is a driver for one object-storage backend, holding a single
// authenticated native client.
//
// Clients are never modified in place when credentials change: a Registry
// replaces the whole client instead.
type BucketClient interface {
	// Scheme returns the path scheme served by this client
	Scheme() string

	// MakeURI returns the canonical URI for the path in this backend.
	MakeURI(p PurePath) string

	// CreateBucket creates the bucket named by p.Root.
	CreateBucket(ctx context.Context, p PurePath) (Bucket, error)

	// DeleteBucket deletes the bucket named by p.Root.
	DeleteBucket(ctx context.Context, p PurePath) error

	// Exists reports whether p is a blob, or a prefix of at least one blob's
	// key (a "directory"), or an existing bucket when p.Key is empty.
	Exists(ctx context.Context, p PurePath) (bool, error)

	// LookupBucket returns the bucket named by p.Root, or (nil, nil) if it does
	// not exist.
	LookupBucket(ctx context.Context, p PurePath) (Bucket, error)

	// GetBucket returns the bucket named by p.Root, or an ErrNotFound error.
	GetBucket(ctx context.Context, p PurePath) (Bucket, error)

	// ListBuckets lazily lists buckets. Pages are fetched as the sequence is
	// consumed.
	ListBuckets(ctx context.Context, opts *ListBucketsOptions) iter.Seq2[Bucket, error]

	// ListBlobs lazily lists the blobs in the bucket named by p.Root. The
	// sequence is empty when the bucket does not exist.
	ListBlobs(ctx context.Context, p PurePath, opts *ListBlobsOptions) iter.Seq2[*Blob, error]

	// ScanDir returns a directory iterator for p, bound to this client.
	ScanDir(p PurePath, opts *ScanOptions) ScanDir

	// Close releases the native client.
	Close() error
}

// LookupBucket is a helper for implementing BucketClient.LookupBucket in terms
// of GetBucket: only ErrNotFound is converted into absence.
func LookupBucket(ctx context.Context, c BucketClient, p PurePath) (Bucket, error) {
	b, err := c.GetBucket(ctx, p)
	if IsNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

// ProbeExists is a helper for implementing BucketClient.Exists. The scheme
// root always exists; a bucket root exists when the bucket does; otherwise p
// exists when a blob has exactly its key, or when some blob's key starts with
// its key followed by Sep. A lone directory marker counts.
func ProbeExists(ctx context.Context, c BucketClient, p PurePath) (bool, error) {
	if p.IsSchemeRoot() {
		return true, nil
	}

	bucket, err := c.LookupBucket(ctx, p)
	if err != nil || bucket == nil {
		return false, err
	}

	if p.Key == "" {
		return true, nil
	}

	blob, err := bucket.GetBlob(ctx, p.Key)
	if err != nil {
		return false, err
	}

	if blob != nil {
		return true, nil
	}

	dirPrefix := p.Key + Sep

	for b, err := range c.ListBlobs(ctx, p, &ListBlobsOptions{Prefix: dirPrefix, PageSize: 1, Markers: true}) {
		if err != nil {
			return false, err
		}

		if strings.HasPrefix(b.Name, dirPrefix) {
			return true, nil
		}
	}

	return false, nil
}

// MakeURI formats p in its canonical form. Backends whose URIs match the path
// syntax use this directly.
func MakeURI(p PurePath) string {
	return p.String()
}

// ListPrefix returns the effective prefix for ListBlobs: opts.Prefix when set,
// otherwise the key of p.
func ListPrefix(p PurePath, opts *ListBlobsOptions) string {
	if opts != nil && opts.Prefix != "" {
		return opts.Prefix
	}

	return p.Key
}
