package cdkbucket

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hairyhenderson/go-pathy"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
)

// Schemes served by this package's clients.
const (
	SchemeFile = "file"
	SchemeMem  = "mem"
)

const defaultPageSize = 1000

// Client is a pathy.BucketClient for file- or memory-backed buckets.
type Client struct {
	buckets map[string]*blob.Bucket
	scheme  string
	root    string
	mu      sync.Mutex
}

var _ pathy.BucketClient = (*Client)(nil)

// Provider is used to register this package's clients with a pathy.Registry
//
//nolint:gochecknoglobals
var Provider = pathy.ClientProviderFunc(newClient, SchemeFile, SchemeMem)

func newClient(_ context.Context, scheme string, creds pathy.Credentials) (pathy.BucketClient, error) {
	switch scheme {
	case SchemeFile:
		return NewFile(creds.Root)
	case SchemeMem:
		return NewMem(), nil
	default:
		return nil, fmt.Errorf("invalid scheme %q", scheme)
	}
}

// NewFile returns a client whose buckets are the directories directly under
// root. The root directory must already exist.
func NewFile(root string) (*Client, error) {
	if root == "" {
		return nil, fmt.Errorf("file buckets need a root directory")
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("file bucket root: %w", err)
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("file bucket root %q is not a directory", root)
	}

	return &Client{scheme: SchemeFile, root: root, buckets: map[string]*blob.Bucket{}}, nil
}

// NewMem returns a client with no buckets, which keeps every bucket it creates
// in memory.
func NewMem() *Client {
	return &Client{scheme: SchemeMem, buckets: map[string]*blob.Bucket{}}
}

// Scheme returns "file" or "mem".
func (c *Client) Scheme() string {
	return c.scheme
}

// Root returns the directory holding file buckets. It is empty for memory
// clients.
func (c *Client) Root() string {
	return c.root
}

// MakeURI returns a file:// URI to the local file for file buckets, and the
// path itself for memory buckets.
func (c *Client) MakeURI(p pathy.PurePath) string {
	if c.scheme != SchemeFile || p.Root == "" {
		return pathy.MakeURI(p)
	}

	return "file://" + filepath.ToSlash(filepath.Join(c.root, p.Root, filepath.FromSlash(p.Key)))
}

func validBucketName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("bucket name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("bucket name %q contains a path separator", name)
	}

	return nil
}

func (c *Client) bucketDir(name string) string {
	return filepath.Join(c.root, name)
}

// open returns the handle for an existing bucket, or nil. Must hold c.mu.
func (c *Client) open(name string) (*blob.Bucket, error) {
	if b, ok := c.buckets[name]; ok {
		if c.scheme == SchemeMem {
			return b, nil
		}

		// the directory may have been removed behind our back
		if _, err := os.Stat(c.bucketDir(name)); err == nil {
			return b, nil
		}

		_ = b.Close()
		delete(c.buckets, name)
	}

	if c.scheme == SchemeMem {
		return nil, nil
	}

	fi, err := os.Stat(c.bucketDir(name))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	b, err := fileblob.OpenBucket(c.bucketDir(name), &fileblob.Options{NoTempDir: true})
	if err != nil {
		return nil, err
	}

	c.buckets[name] = b

	return b, nil
}

// CreateBucket creates a new bucket. For file buckets, this creates a
// directory under the root.
func (c *Client) CreateBucket(_ context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if err := validBucketName(p.Root); err != nil {
		return nil, pathy.NewError("create bucket", p.Root, pathy.ErrInvalidName, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.open(p.Root)
	if err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	if existing != nil {
		return nil, pathy.NewError("create bucket", p.Root, pathy.ErrAlreadyExists, nil)
	}

	if c.scheme == SchemeMem {
		c.buckets[p.Root] = memblob.OpenBucket(nil)

		return c.bucket(p.Root, c.buckets[p.Root]), nil
	}

	if err := os.Mkdir(c.bucketDir(p.Root), 0o755); err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	b, err := c.open(p.Root)
	if err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	return c.bucket(p.Root, b), nil
}

// DeleteBucket deletes the bucket and everything in it.
func (c *Client) DeleteBucket(_ context.Context, p pathy.PurePath) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.open(p.Root)
	if err != nil {
		return toError("delete bucket", p.Root, err)
	}

	if b == nil {
		return pathy.NewError("delete bucket", p.Root, pathy.ErrNotFound, nil)
	}

	_ = b.Close()
	delete(c.buckets, p.Root)

	if c.scheme == SchemeFile {
		if err := os.RemoveAll(c.bucketDir(p.Root)); err != nil {
			return toError("delete bucket", p.Root, err)
		}
	}

	return nil
}

// Exists reports whether p names a bucket, a blob, or a directory.
func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	return pathy.ProbeExists(ctx, c, p)
}

// LookupBucket returns the bucket named by p, or nil if there is none.
func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	return pathy.LookupBucket(ctx, c, p)
}

// GetBucket returns the bucket named by p.
func (c *Client) GetBucket(_ context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if err := validBucketName(p.Root); err != nil {
		return nil, pathy.NewError("get bucket", p.Root, pathy.ErrInvalidName, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.open(p.Root)
	if err != nil {
		return nil, toError("get bucket", p.Root, err)
	}

	if b == nil {
		return nil, pathy.NewError("get bucket", p.Root, pathy.ErrNotFound, nil)
	}

	return c.bucket(p.Root, b), nil
}

func (c *Client) bucket(name string, b *blob.Bucket) *bucket {
	return &bucket{client: c, bkt: b, name: name}
}

// bucketNames returns a sorted snapshot of the existing bucket names.
func (c *Client) bucketNames(prefix string) ([]string, error) {
	var names []string

	if c.scheme == SchemeMem {
		c.mu.Lock()

		for name := range c.buckets {
			names = append(names, name)
		}

		c.mu.Unlock()
	} else {
		entries, err := os.ReadDir(c.root)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}

	out := names[:0]

	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out, nil
}

// ListBuckets lists the buckets in name order.
func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	if opts == nil {
		opts = &pathy.ListBucketsOptions{}
	}

	return func(yield func(pathy.Bucket, error) bool) {
		names, err := c.bucketNames(opts.Prefix)
		if err != nil {
			yield(nil, toError("list buckets", c.root, err))

			return
		}

		for _, name := range names {
			b, err := c.LookupBucket(ctx, pathy.PurePath{Scheme: c.scheme, Root: name})
			if err != nil {
				yield(nil, err)

				return
			}

			// removed since the snapshot was taken
			if b == nil {
				continue
			}

			if !yield(b, nil) {
				return
			}
		}
	}
}

// ListBlobs lists the blobs in p's bucket, one page at a time.
func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	prefix := pathy.ListPrefix(p, opts)

	var delim string

	pageSize := defaultPageSize

	if opts != nil {
		delim = opts.Delimiter

		if opts.PageSize > 0 {
			pageSize = opts.PageSize
		}
	}

	return func(yield func(*pathy.Blob, error) bool) {
		lb, err := c.LookupBucket(ctx, p)
		if err != nil {
			yield(nil, err)

			return
		}

		if lb == nil {
			return
		}

		b := lb.(*bucket)

		for obj, err := range b.list(ctx, prefix, delim, pageSize) {
			if err != nil {
				yield(nil, err)

				return
			}

			if obj.IsDir || pathy.SkipMarker(opts, obj.Key) {
				continue
			}

			if !yield(b.blobFromList(obj), nil) {
				return
			}
		}
	}
}

// ScanDir returns a directory iterator for p.
func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

// Close closes all open bucket handles. Memory buckets are discarded.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for name, b := range c.buckets {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bucket %q: %w", name, err))
		}

		delete(c.buckets, name)
	}

	return errors.Join(errs...)
}
