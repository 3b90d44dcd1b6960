package s3bucket

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hairyhenderson/go-pathy"
)

// Scheme is the path scheme served by this package's client
const Scheme = "s3"

// used when no region can be found anywhere else
const defaultRegion = "us-east-1"

// Client is a pathy.BucketClient for S3.
type Client struct {
	s3     *s3.Client
	region string
}

var _ pathy.BucketClient = (*Client)(nil)

// Provider is used to register this package's client with a pathy.Registry
//
//nolint:gochecknoglobals
var Provider = pathy.ClientProviderFunc(
	func(ctx context.Context, _ string, creds pathy.Credentials) (pathy.BucketClient, error) {
		return New(ctx, creds)
	}, Scheme)

// New returns a client configured from the SDK's default configuration,
// overridden by the given credentials.
func New(ctx context.Context, creds pathy.Credentials) (*Client, error) {
	cfgOpts := []func(*config.LoadOptions) error{}
	if creds.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(creds.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region = imdsRegion(ctx, cfg)
	}

	opts := []func(*s3.Options){}

	if creds.Anonymous {
		opts = append(opts, func(o *s3.Options) {
			o.Credentials = aws.AnonymousCredentials{}
		})
	}

	if creds.PathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if creds.Endpoint != "" {
		endpoint := creds.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}

		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return NewFromClient(s3.NewFromConfig(cfg, opts...)), nil
}

// imdsRegion looks the region up in the EC2 instance metadata service,
// falling back to us-east-1 when it can't be reached.
func imdsRegion(ctx context.Context, cfg aws.Config) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := imds.NewFromConfig(cfg).GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil || out.Region == "" {
		return defaultRegion
	}

	return out.Region
}

// NewFromClient returns a client wrapping an already-configured S3 client.
func NewFromClient(client *s3.Client) *Client {
	return &Client{s3: client, region: client.Options().Region}
}

// S3 returns the native client.
func (c *Client) S3() *s3.Client {
	return c.s3
}

func (c *Client) Scheme() string {
	return Scheme
}

func (c *Client) MakeURI(p pathy.PurePath) string {
	return pathy.MakeURI(p)
}

func (c *Client) bucket(name string, raw *types.Bucket) *bucket {
	if raw == nil {
		raw = &types.Bucket{Name: aws.String(name)}
	}

	return &bucket{client: c, name: name, raw: raw}
}

// CreateBucket creates the bucket in the client's region.
func (c *Client) CreateBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	in := &s3.CreateBucketInput{Bucket: aws.String(p.Root)}

	if c.region != "" && c.region != defaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, in); err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	return c.bucket(p.Root, nil), nil
}

func (c *Client) DeleteBucket(ctx context.Context, p pathy.PurePath) error {
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(p.Root)})

	return toError("delete bucket", p.Root, err)
}

func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	return pathy.ProbeExists(ctx, c, p)
}

func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	return pathy.LookupBucket(ctx, c, p)
}

// GetBucket checks that the bucket exists with a HeadBucket request.
func (c *Client) GetBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if p.Root == "" {
		return nil, pathy.NewError("get bucket", p.String(), pathy.ErrInvalidName, fmt.Errorf("no bucket named"))
	}

	if _, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.Root)}); err != nil {
		return nil, toError("get bucket", p.Root, err)
	}

	return c.bucket(p.Root, nil), nil
}

func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	if opts == nil {
		opts = &pathy.ListBucketsOptions{}
	}

	in := &s3.ListBucketsInput{}
	if opts.Prefix != "" {
		in.Prefix = aws.String(opts.Prefix)
	}

	if opts.PageSize > 0 {
		in.MaxBuckets = aws.Int32(int32(opts.PageSize)) //nolint:gosec
	}

	return func(yield func(pathy.Bucket, error) bool) {
		pager := s3.NewListBucketsPaginator(c.s3, in)

		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, toError("list buckets", opts.Prefix, err))

				return
			}

			for i := range page.Buckets {
				raw := page.Buckets[i]
				name := aws.ToString(raw.Name)

				// not every S3-compatible store filters by prefix
				if !strings.HasPrefix(name, opts.Prefix) {
					continue
				}

				if !yield(c.bucket(name, &raw), nil) {
					return
				}
			}
		}
	}
}

func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	var delim string

	var pageSize int

	if opts != nil {
		delim = opts.Delimiter
		pageSize = opts.PageSize
	}

	prefix := pathy.ListPrefix(p, opts)

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

		for page, err := range b.pages(ctx, prefix, delim, pageSize) {
			if err != nil {
				yield(nil, err)

				return
			}

			for i := range page.Contents {
				obj := page.Contents[i]
				if pathy.SkipMarker(opts, aws.ToString(obj.Key)) {
					continue
				}

				if !yield(b.blobFromObject(obj), nil) {
					return
				}
			}
		}
	}
}

func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

// Close is a no-op: the SDK client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
