package azurebucket

import (
	"context"
	"fmt"
	"iter"
	"net"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/hairyhenderson/go-pathy"
)

// Scheme is the path scheme served by this package's client
const Scheme = "azure"

// Client is a pathy.BucketClient for Azure Blob Storage.
type Client struct {
	api api
	raw *azblob.Client
}

var _ pathy.BucketClient = (*Client)(nil)

// Provider is used to register this package's client with a pathy.Registry
//
//nolint:gochecknoglobals
var Provider = pathy.ClientProviderFunc(
	func(_ context.Context, _ string, creds pathy.Credentials) (pathy.BucketClient, error) {
		return New(creds)
	}, Scheme)

// New returns a client for the storage account described by creds.
func New(creds pathy.Credentials) (*Client, error) {
	var (
		client *azblob.Client
		err    error
	)

	switch {
	case creds.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(creds.ConnectionString, nil)
	case creds.AccountURL == "":
		return nil, pathy.NewError("new client", Scheme+"://", pathy.ErrInvalidName,
			fmt.Errorf("either a connection string or an account URL is required"))
	case creds.Anonymous:
		client, err = azblob.NewClientWithNoCredential(creds.AccountURL, nil)
	case isSAS(creds.Credential):
		client, err = azblob.NewClientWithNoCredential(withSAS(creds.AccountURL, creds.Credential), nil)
	case creds.Credential != "":
		client, err = newSharedKeyClient(creds.AccountURL, creds.Credential)
	default:
		client, err = newDefaultCredentialClient(creds.AccountURL)
	}

	if err != nil {
		return nil, fmt.Errorf("new azure blob client: %w", err)
	}

	return NewFromClient(client), nil
}

func newSharedKeyClient(accountURL, key string) (*azblob.Client, error) {
	account, err := accountName(accountURL)
	if err != nil {
		return nil, err
	}

	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, err
	}

	return azblob.NewClientWithSharedKeyCredential(accountURL, cred, nil)
}

func newDefaultCredentialClient(accountURL string) (*azblob.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	return azblob.NewClient(accountURL, cred, nil)
}

// isSAS reports whether the credential is a shared access signature rather
// than an account key
func isSAS(cred string) bool {
	q, err := url.ParseQuery(strings.TrimPrefix(cred, "?"))

	return err == nil && q.Get("sig") != ""
}

func withSAS(accountURL, sas string) string {
	sas = strings.TrimPrefix(sas, "?")

	if strings.Contains(accountURL, "?") {
		return accountURL + "&" + sas
	}

	return accountURL + "?" + sas
}

// accountName finds the storage account name in an account URL. This is the
// first label of the host name, or for emulators (addressed by IP or
// localhost), the first path segment.
func accountName(accountURL string) (string, error) {
	u, err := url.Parse(accountURL)
	if err != nil {
		return "", fmt.Errorf("invalid account URL %q: %w", accountURL, err)
	}

	host := u.Hostname()
	if host == "localhost" || net.ParseIP(host) != nil {
		account, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if account == "" {
			return "", fmt.Errorf("no account name in URL %q", accountURL)
		}

		return account, nil
	}

	account, _, _ := strings.Cut(host, ".")
	if account == "" {
		return "", fmt.Errorf("no account name in URL %q", accountURL)
	}

	return account, nil
}

// NewFromClient returns a client wrapping an already-authenticated service
// client.
func NewFromClient(client *azblob.Client) *Client {
	return &Client{api: nativeAPI{client}, raw: client}
}

// Azure returns the native client. It is nil when the client was built around
// another implementation of the API.
func (c *Client) Azure() *azblob.Client {
	return c.raw
}

func (c *Client) Scheme() string {
	return Scheme
}

func (c *Client) MakeURI(p pathy.PurePath) string {
	return pathy.MakeURI(p)
}

func (c *Client) bucket(name string, raw any) *bucket {
	return &bucket{client: c, name: name, raw: raw}
}

func (c *Client) CreateBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if _, err := c.api.CreateContainer(ctx, p.Root, nil); err != nil {
		return nil, toError("create bucket", p.Root, err)
	}

	return c.bucket(p.Root, nil), nil
}

func (c *Client) DeleteBucket(ctx context.Context, p pathy.PurePath) error {
	_, err := c.api.DeleteContainer(ctx, p.Root, nil)

	return toError("delete bucket", p.Root, err)
}

func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	return pathy.ProbeExists(ctx, c, p)
}

func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	return pathy.LookupBucket(ctx, c, p)
}

// GetBucket checks that the container exists by fetching its properties.
func (c *Client) GetBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	if p.Root == "" {
		return nil, pathy.NewError("get bucket", p.String(), pathy.ErrInvalidName, fmt.Errorf("no container named"))
	}

	props, err := c.api.GetContainerProperties(ctx, p.Root)
	if err != nil {
		return nil, toError("get bucket", p.Root, err)
	}

	return c.bucket(p.Root, props), nil
}

func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	lo := &azblob.ListContainersOptions{}

	if opts != nil {
		if opts.Prefix != "" {
			lo.Prefix = to.Ptr(opts.Prefix)
		}

		if opts.PageSize > 0 {
			lo.MaxResults = to.Ptr(int32(opts.PageSize)) //nolint:gosec
		}
	}

	return func(yield func(pathy.Bucket, error) bool) {
		pager := c.api.NewListContainersPager(lo)

		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, toError("list buckets", Scheme+"://", err))

				return
			}

			for _, item := range page.ContainerItems {
				if item == nil || item.Name == nil {
					continue
				}

				if !yield(c.bucket(*item.Name, item), nil) {
					return
				}
			}
		}
	}
}

func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	prefix := pathy.ListPrefix(p, opts)

	var delim string

	pageSize := 0

	if opts != nil {
		delim = opts.Delimiter
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

		items := b.flat(ctx, prefix, pageSize)
		if delim != "" {
			items = b.hierarchyItems(ctx, prefix, delim, pageSize)
		}

		for item, err := range items {
			if err != nil {
				yield(nil, err)

				return
			}

			if pathy.SkipMarker(opts, value(item.Name)) {
				continue
			}

			if !yield(b.blob(item), nil) {
				return
			}
		}
	}
}

func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

// Close is a no-op: the service client holds no resources of its own.
func (c *Client) Close() error {
	return nil
}
