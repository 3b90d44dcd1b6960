package pathy

import (
	"context"
	"iter"
	"strings"
)

// ScanOptions overrides the listing parameters of a ScanDir.
type ScanOptions struct {
	// Prefix overrides the listing prefix. By default it is the path's key
	// followed by the delimiter.
	Prefix string

	// Delimiter overrides the directory delimiter. Defaults to Sep.
	Delimiter string

	// PageSize is a hint for the number of results requested per page
	PageSize int
}

// ScanDir lazily enumerates the entries directly under a path.
type ScanDir interface {
	// Path returns the path being scanned
	Path() PurePath

	// Entries returns a new, independent sequence of entries. Each call
	// starts listing from the beginning; no cursor is shared between calls.
	Entries(ctx context.Context) iter.Seq2[BucketEntry, error]
}

// NewScanDir returns the standard ScanDir for p, bound to the given client.
//
// For the scheme root, it yields one directory entry per bucket. Otherwise it
// resolves the bucket (yielding nothing when it does not exist) and walks the
// bucket under the path's key, yielding one entry per immediate child.
func NewScanDir(c BucketClient, p PurePath, opts *ScanOptions) ScanDir {
	s := &scanDir{client: c, path: p, delimiter: Sep}

	if opts != nil {
		if opts.Delimiter != "" {
			s.delimiter = opts.Delimiter
		}

		s.prefix = opts.Prefix
		s.pageSize = opts.PageSize
	}

	if s.prefix == "" && p.Key != "" {
		s.prefix = p.Key + s.delimiter
	}

	return s
}

type scanDir struct {
	client    BucketClient
	path      PurePath
	prefix    string
	delimiter string
	pageSize  int
}

var _ ScanDir = (*scanDir)(nil)

func (s *scanDir) Path() PurePath {
	return s.path
}

func (s *scanDir) Entries(ctx context.Context) iter.Seq2[BucketEntry, error] {
	if s.path.IsSchemeRoot() {
		return s.buckets(ctx)
	}

	return s.children(ctx)
}

func (s *scanDir) buckets(ctx context.Context) iter.Seq2[BucketEntry, error] {
	return func(yield func(BucketEntry, error) bool) {
		opts := &ListBucketsOptions{PageSize: s.pageSize}

		for b, err := range s.client.ListBuckets(ctx, opts) {
			if err != nil {
				yield(BucketEntry{}, err)

				return
			}

			if !yield(DirEntry(b.Name(), nil), nil) {
				return
			}
		}
	}
}

func (s *scanDir) children(ctx context.Context) iter.Seq2[BucketEntry, error] {
	return func(yield func(BucketEntry, error) bool) {
		bucket, err := s.client.LookupBucket(ctx, s.path)
		if err != nil {
			yield(BucketEntry{}, err)

			return
		}

		if bucket == nil {
			return
		}

		seen := map[string]struct{}{}
		opts := WalkOptions{Prefix: s.prefix, Delimiter: s.delimiter, PageSize: s.pageSize}

		for entry, err := range bucket.Walk(ctx, opts) {
			if err != nil {
				yield(BucketEntry{}, err)

				return
			}

			name, nested, ok := childName(entry.Name, s.prefix, s.delimiter)
			if !ok {
				continue
			}

			if nested {
				entry = DirEntry(name, nil)
			}

			if _, dup := seen[name]; dup {
				continue
			}

			seen[name] = struct{}{}
			entry.Name = name

			if !yield(entry, nil) {
				return
			}
		}
	}
}

// childName strips the listing prefix and any trailing delimiter from a
// listed key. Keys equal to the prefix itself (directory markers) and keys
// outside the prefix are rejected.
// Deeper keys are truncated to the child segment and reported as nested.
func childName(key, prefix, delimiter string) (name string, nested, ok bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", false, false
	}

	name = strings.TrimSuffix(key[len(prefix):], delimiter)
	if name == "" {
		return "", false, false
	}

	// a walk should never yield grandchildren, but flat listings can
	if i := strings.Index(name, delimiter); i >= 0 {
		return name[:i], true, true
	}

	return name, false, true
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T

	for v, err := range seq {
		if err != nil {
			return out, err
		}

		out = append(out, v)
	}

	return out, nil
}

// ErrSeq returns a sequence that yields only the given error.
func ErrSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		yield(zero, err)
	}
}
