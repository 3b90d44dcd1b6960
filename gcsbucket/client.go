package gcsbucket

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/hairyhenderson/go-pathy"
	"gocloud.dev/gcp"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Scheme is the path scheme served by this package's client
const Scheme = "gs"

// Client is a pathy.BucketClient for Google Cloud Storage.
type Client struct {
	gcs     *storage.Client
	project string
}

var _ pathy.BucketClient = (*Client)(nil)

// Provider is used to register this package's client with a pathy.Registry
//
//nolint:gochecknoglobals
var Provider = pathy.ClientProviderFunc(
	func(ctx context.Context, _ string, creds pathy.Credentials) (pathy.BucketClient, error) {
		return New(ctx, creds)
	}, Scheme)

// New returns a client authenticated with Application Default Credentials,
// or an anonymous client when creds.Anonymous is set.
func New(ctx context.Context, creds pathy.Credentials) (*Client, error) {
	opts := []option.ClientOption{}
	project := creds.Project

	switch {
	case creds.Anonymous:
		opts = append(opts, option.WithHTTPClient(&gcp.NewAnonymousHTTPClient(gcp.DefaultTransport()).Client))
	case creds.Endpoint != "":
		// emulators don't authenticate
		opts = append(opts, option.WithoutAuthentication())
	default:
		dc, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve GCP credentials: %w", err)
		}

		hc, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(dc))
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP HTTP client: %w", err)
		}

		opts = append(opts, option.WithHTTPClient(&hc.Client))

		if project == "" {
			if id, err := gcp.DefaultProjectID(dc); err == nil {
				project = string(id)
			}
		}
	}

	if creds.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpointURL(creds.Endpoint)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new storage client: %w", err)
	}

	return NewFromClient(client, project), nil
}

// endpointURL turns an emulator host (as in STORAGE_EMULATOR_HOST) into a JSON
// API endpoint URL.
func endpointURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}

	return "http://" + strings.TrimSuffix(endpoint, "/") + "/storage/v1/"
}

// NewFromClient returns a client wrapping an already-authenticated storage
// client. The project is used to list and create buckets.
func NewFromClient(client *storage.Client, project string) *Client {
	return &Client{gcs: client, project: project}
}

// Storage returns the native client.
func (c *Client) Storage() *storage.Client {
	return c.gcs
}

func (c *Client) Scheme() string {
	return Scheme
}

func (c *Client) MakeURI(p pathy.PurePath) string {
	return pathy.MakeURI(p)
}

func (c *Client) bucket(name string) *bucket {
	return &bucket{client: c, handle: c.gcs.Bucket(name), name: name}
}

func (c *Client) CreateBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	b := c.bucket(p.Root)

	if err := b.handle.Create(ctx, c.project, nil); err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	return b, nil
}

func (c *Client) DeleteBucket(ctx context.Context, p pathy.PurePath) error {
	return toError("delete bucket", p.Root, c.gcs.Bucket(p.Root).Delete(ctx))
}

func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	return pathy.ProbeExists(ctx, c, p)
}

func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	return pathy.LookupBucket(ctx, c, p)
}

// GetBucket checks that the bucket exists by fetching its attributes.
func (c *Client) GetBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if p.Root == "" {
		return nil, pathy.NewError("get bucket", p.String(), pathy.ErrInvalidName, fmt.Errorf("no bucket named"))
	}

	b := c.bucket(p.Root)

	if _, err := b.handle.Attrs(ctx); err != nil {
		return nil, toError("get bucket", p.Root, err)
	}

	return b, nil
}

func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	if opts == nil {
		opts = &pathy.ListBucketsOptions{}
	}

	return func(yield func(pathy.Bucket, error) bool) {
		it := c.gcs.Buckets(ctx, c.project)
		it.Prefix = opts.Prefix

		if opts.PageSize > 0 {
			it.PageInfo().MaxSize = opts.PageSize
		}

		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}

			if err != nil {
				yield(nil, toError("list buckets", c.project, err))

				return
			}

			if !strings.HasPrefix(attrs.Name, opts.Prefix) {
				continue
			}

			if !yield(c.bucket(attrs.Name), nil) {
				return
			}
		}
	}
}

func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	q := &storage.Query{Prefix: pathy.ListPrefix(p, opts)}

	var pageSize int

	if opts != nil {
		q.Delimiter = opts.Delimiter
		pageSize = opts.PageSize
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

		for attrs, err := range b.objects(ctx, q, pageSize) {
			if err != nil {
				yield(nil, err)

				return
			}

			// synthetic directories and directory markers
			if attrs.Prefix != "" || pathy.SkipMarker(opts, attrs.Name) {
				continue
			}

			if !yield(b.blob(attrs), nil) {
				return
			}
		}
	}
}

func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

// Close closes the native client.
func (c *Client) Close() error {
	return c.gcs.Close()
}
