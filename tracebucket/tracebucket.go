// Package tracebucket instruments a pathy.BucketClient for distributed
// tracing. The OpenTelemetry API is supported.
//
// This is not a backend, but rather a wrapper around an existing client. As
// such, it does not provide a pathy.ClientProvider: wrap a constructed client
// and install it with pathy.Registry.SetClient.
//
// # Usage
//
// Call [New] with a client. All operations on the returned client, and on the
// buckets, readers and writers it hands out, will be instrumented. Listings
// get a single span, which starts when iteration starts and ends when the
// consumer stops.
//
// In order to report traces, an OTel [trace.TracerProvider] must first be set
// up. See the pathycli example in this repository's examples directory for one
// approach. A [trace.TracerProvider] can optionally be passed to [New] using
// [WithTracerProvider].
package tracebucket

import (
	"context"
	"fmt"
	"iter"

	"github.com/hairyhenderson/go-pathy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-pathy/tracebucket"

// Client is an instrumented pathy.BucketClient.
type Client struct {
	client      pathy.BucketClient
	tracer      trace.Tracer
	propagators propagation.TextMapPropagator
	clientType  string
	attrs       []attribute.KeyValue
}

var _ pathy.BucketClient = (*Client)(nil)

// New returns a client that instruments the given client, adding trace spans
// for each operation.
func New(client pathy.BucketClient, opts ...Option) *Client {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}

	if cfg.propagators == nil {
		cfg.propagators = otel.GetTextMapPropagator()
	}

	return &Client{
		client:      client,
		tracer:      cfg.tp.Tracer(tracerName),
		propagators: cfg.propagators,
		clientType:  fmt.Sprintf("%T", client),
		attrs:       cfg.attrs,
	}
}

// Unwrap returns the instrumented client.
func (c *Client) Unwrap() pathy.BucketClient {
	return c.client
}

// Inject writes the trace context from ctx into the carrier, using the
// configured propagators. This can be used to record the trace that wrote a
// blob alongside it.
func (c *Client) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	c.propagators.Inject(ctx, carrier)
}

func (c *Client) start(ctx context.Context, name string, p pathy.PurePath) (context.Context, trace.Span) {
	attrs := []trace.SpanStartOption{trace.WithAttributes(
		Scheme(c.client.Scheme()),
		ClientType(c.clientType),
	)}

	if p.Root != "" {
		attrs = append(attrs, trace.WithAttributes(Bucket(p.Root)))
	}

	if p.Key != "" {
		attrs = append(attrs, trace.WithAttributes(Key(p.Key)))
	}

	if len(c.attrs) > 0 {
		attrs = append(attrs, trace.WithAttributes(c.attrs...))
	}

	return c.tracer.Start(ctx, name, attrs...)
}

func (c *Client) Scheme() string {
	return c.client.Scheme()
}

func (c *Client) MakeURI(p pathy.PurePath) string {
	return c.client.MakeURI(p)
}

func (c *Client) wrap(b pathy.Bucket) pathy.Bucket {
	if b == nil {
		return nil
	}

	return &traceBucket{bucket: b, client: c}
}

func (c *Client) CreateBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	ctx, span := c.start(ctx, "client.CreateBucket", p)
	defer span.End()

	b, err := c.client.CreateBucket(ctx, p)

	return c.wrap(b), recordError(span, err)
}

func (c *Client) DeleteBucket(ctx context.Context, p pathy.PurePath) error {
	ctx, span := c.start(ctx, "client.DeleteBucket", p)
	defer span.End()

	return recordError(span, c.client.DeleteBucket(ctx, p))
}

func (c *Client) Exists(ctx context.Context, p pathy.PurePath) (bool, error) {
	ctx, span := c.start(ctx, "client.Exists", p)
	defer span.End()

	ok, err := c.client.Exists(ctx, p)

	return ok, recordError(span, err)
}

func (c *Client) LookupBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	ctx, span := c.start(ctx, "client.LookupBucket", p)
	defer span.End()

	b, err := c.client.LookupBucket(ctx, p)

	return c.wrap(b), recordError(span, err)
}

func (c *Client) GetBucket(ctx context.Context, p pathy.PurePath) (pathy.Bucket, error) {
	ctx, span := c.start(ctx, "client.GetBucket", p)
	defer span.End()

	b, err := c.client.GetBucket(ctx, p)

	return c.wrap(b), recordError(span, err)
}

func (c *Client) ListBuckets(ctx context.Context, opts *pathy.ListBucketsOptions) iter.Seq2[pathy.Bucket, error] {
	return func(yield func(pathy.Bucket, error) bool) {
		ctx, span := c.start(ctx, "client.ListBuckets", pathy.PurePath{})
		defer span.End()

		if opts != nil && opts.Prefix != "" {
			span.SetAttributes(Prefix(opts.Prefix))
		}

		n := 0

		defer func() { span.SetAttributes(Count(n)) }()

		for b, err := range c.client.ListBuckets(ctx, opts) {
			if err != nil {
				yield(nil, recordError(span, err))

				return
			}

			n++

			if !yield(c.wrap(b), nil) {
				return
			}
		}
	}
}

func (c *Client) ListBlobs(ctx context.Context, p pathy.PurePath, opts *pathy.ListBlobsOptions) iter.Seq2[*pathy.Blob, error] {
	return func(yield func(*pathy.Blob, error) bool) {
		ctx, span := c.start(ctx, "client.ListBlobs", p)
		defer span.End()

		span.SetAttributes(Prefix(pathy.ListPrefix(p, opts)))

		n := 0

		defer func() { span.SetAttributes(Count(n)) }()

		var tb *traceBucket

		for blob, err := range c.client.ListBlobs(ctx, p, opts) {
			if err != nil {
				yield(nil, recordError(span, err))

				return
			}

			n++

			if tb == nil || tb.bucket != blob.Bucket {
				tb = &traceBucket{bucket: blob.Bucket, client: c}
			}

			if !yield(tb.wrapBlob(blob), nil) {
				return
			}
		}
	}
}

// ScanDir returns a directory iterator that lists through this client, so
// its bucket lookups and walks are traced.
func (c *Client) ScanDir(p pathy.PurePath, opts *pathy.ScanOptions) pathy.ScanDir {
	return pathy.NewScanDir(c, p, opts)
}

func (c *Client) Close() error {
	_, span := c.start(context.Background(), "client.Close", pathy.PurePath{})
	defer span.End()

	return recordError(span, c.client.Close())
}

// recordError records the given error on the span, and returns it. It does not
// set the span's status to error.
func recordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
	}

	return err
}
