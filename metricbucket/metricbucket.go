package metricbucket

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/hairyhenderson/go-pathy"
)

// Client is a pathy.BucketClient that records metrics for each operation.
type Client struct {
	client  pathy.BucketClient
	metrics *Metrics
	scheme  string
}

var _ pathy.BucketClient = (*Client)(nil)

// New returns a client that instruments the given client.
func New(client pathy.BucketClient, m *Metrics) *Client {
	return &Client{client: client, metrics: m, scheme: client.Scheme()}
}

// Unwrap returns the instrumented client.
func (c *Client) Unwrap() pathy.BucketClient {
	return c.client
}

// observe records one operation that started at start. It returns err.
func (c *Client) observe(op string, start time.Time, err error) error {
	c.metrics.ops.WithLabelValues(c.scheme, op).Inc()
	c.metrics.duration.WithLabelValues(c.scheme, op).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.errors.WithLabelValues(c.scheme, op, errorKind(err)).Inc()
	}

	return err
}

func (c *Client) wrap(b pathy.Bucket) pathy.Bucket {
	if b == nil {
		return nil
	}

	return &bucket{bucket: b, client: c}
}

func (c *Client) Scheme() string {
	return c.scheme
}

func (c *Client) MakeURI(p pathy.PurePath) string {
	return c.client.MakeURI(p)
}

func (c *Client) CreateBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	start := time.Now()
	b, err := c.client.CreateBucket(ctx, p)

	return c.wrap(b), c.observe("create_bucket", start, err)
}

func (c *Client) DeleteBucket(ctx context.Context, p pathy.PurePath) error {
	start := time.Now()

	return c.observe("delete_bucket", start, c.client.DeleteBucket(ctx, p))
}

func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	start := time.Now()
	ok, err := c.client.Exists(ctx, p)

	return ok, c.observe("exists", start, err)
}

func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	start := time.Now()
	b, err := c.client.LookupBucket(ctx, p)

	return c.wrap(b), c.observe("lookup_bucket", start, err)
}

func (c *Client) GetBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	start := time.Now()
	b, err := c.client.GetBucket(ctx, p)

	return c.wrap(b), c.observe("get_bucket", start, err)
}

// observeSeq records a listing as a single operation, which lasts until the
// consumer stops or the listing fails.
func observeSeq[T any](c *Client, op string, seq iter.Seq2[T, error], wrap func(T) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		start := time.Now()

		for v, err := range seq {
			if err != nil {
				yield(v, c.observe(op, start, err))

				return
			}

			if !yield(wrap(v), nil) {
				break
			}
		}

		c.observe(op, start, nil)
	}
}

func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	return observeSeq(c, "list_buckets", c.client.ListBuckets(ctx, opts), c.wrap)
}

func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	var last *bucket

	wrapBlob := func(blob *pathy.Blob) *pathy.Blob {
		if last == nil || last.bucket != blob.Bucket {
			last = &bucket{bucket: blob.Bucket, client: c}
		}

		return last.wrapBlob(blob)
	}

	return observeSeq(c, "list_blobs", c.client.ListBlobs(ctx, p, opts), wrapBlob)
}

func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

func (c *Client) Close() error {
	start := time.Now()

	return c.observe("close", start, c.client.Close())
}

type bucket struct {
	bucket pathy.Bucket
	client *Client
}

var _ pathy.Bucket = (*bucket)(nil)

// Unwrap returns the instrumented bucket.
func (b *bucket) Unwrap() pathy.Bucket {
	return b.bucket
}

func (b *bucket) Name() string {
	return b.bucket.Name()
}

func (b *bucket) Raw() any {
	return b.bucket.Raw()
}

func (b *bucket) wrapBlob(blob *pathy.Blob) *pathy.Blob {
	if blob == nil {
		return nil
	}

	wrapped := *blob
	wrapped.Bucket = b

	return &wrapped
}

func unwrapBlob(blob *pathy.Blob) *pathy.Blob {
	if blob == nil || blob.Bucket == nil {
		return blob
	}

	inner := *blob
	inner.Bucket = pathy.UnwrapBucket(blob.Bucket)

	return &inner
}

func (b *bucket) Exists(ctx context.Context) (bool, error) {
	start := time.Now()
	ok, err := b.bucket.Exists(ctx)

	return ok, b.client.observe("bucket_exists", start, err)
}

func (b *bucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	start := time.Now()
	blob, err := b.bucket.GetBlob(ctx, name)

	return b.wrapBlob(blob), b.client.observe("get_blob", start, err)
}

func (b *bucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	start := time.Now()

	blob, err := b.bucket.CopyBlob(ctx, unwrapBlob(src), target, name)
	if err := b.client.observe("copy_blob", start, err); err != nil {
		return nil, err
	}

	if tb, ok := target.(*bucket); ok {
		return tb.wrapBlob(blob), nil
	}

	return blob, nil
}

func (b *bucket) DeleteBlob(ctx context.Context, blob *pathy.Blob) error {
	start := time.Now()

	return b.client.observe("delete_blob", start, b.bucket.DeleteBlob(ctx, unwrapBlob(blob)))
}

func (b *bucket) DeleteBlobs(ctx context.Context, blobs []*pathy.Blob) error {
	start := time.Now()

	inner := make([]*pathy.Blob, len(blobs))
	for i, blob := range blobs {
		inner[i] = unwrapBlob(blob)
	}

	return b.client.observe("delete_blobs", start, b.bucket.DeleteBlobs(ctx, inner))
}

func (b *bucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()

	r, err := b.bucket.NewReader(ctx, name)
	if err := b.client.observe("new_reader", start, err); err != nil {
		return nil, err
	}

	return &countingReader{ReadCloser: r, client: b.client}, nil
}

func (b *bucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	start := time.Now()

	w, err := b.bucket.NewWriter(ctx, name, opts)
	if err := b.client.observe("new_writer", start, err); err != nil {
		return nil, err
	}

	return &countingWriter{WriteCloser: w, client: b.client}, nil
}

func (b *bucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	return observeSeq(b.client, "walk", b.bucket.Walk(ctx, opts), func(e pathy.BucketEntry) pathy.BucketEntry { return e })
}

type countingReader struct {
	io.ReadCloser
	client *Client
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.client.metrics.bytes.WithLabelValues(r.client.scheme, "read").Add(float64(n))

	return n, err
}

// countingWriter counts bytes as they're accepted; uploads that fail on Close
// are reported as a close error.
type countingWriter struct {
	io.WriteCloser
	client *Client
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	w.client.metrics.bytes.WithLabelValues(w.client.scheme, "write").Add(float64(n))

	return n, err
}

func (w *countingWriter) Close() error {
	start := time.Now()

	return w.client.observe("close_writer", start, w.WriteCloser.Close())
}
