package tracebucket

import (
	"context"
	"io"
	"iter"

	"github.com/hairyhenderson/go-pathy"
	"go.opentelemetry.io/otel/trace"
)

type traceBucket struct {
	bucket pathy.Bucket
	client *Client
}

var _ pathy.Bucket = (*traceBucket)(nil)

// Unwrap returns the instrumented bucket. Backends use it to recognize their
// own buckets as copy targets.
func (b *traceBucket) Unwrap() pathy.Bucket {
	return b.bucket
}

func (b *traceBucket) Name() string {
	return b.bucket.Name()
}

func (b *traceBucket) Raw() any {
	return b.bucket.Raw()
}

func (b *traceBucket) start(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return b.client.start(ctx, name, pathy.PurePath{Scheme: b.client.Scheme(), Root: b.bucket.Name(), Key: key})
}

// wrapBlob returns a copy of the blob that refers back to this bucket
func (b *traceBucket) wrapBlob(blob *pathy.Blob) *pathy.Blob {
	if blob == nil {
		return nil
	}

	wrapped := *blob
	wrapped.Bucket = b

	return &wrapped
}

// unwrapBlob returns a copy of the blob referring to the bucket it came from
func unwrapBlob(blob *pathy.Blob) *pathy.Blob {
	if blob == nil || blob.Bucket == nil {
		return blob
	}

	inner := *blob
	inner.Bucket = pathy.UnwrapBucket(blob.Bucket)

	return &inner
}

func (b *traceBucket) Exists(ctx context.Context) (bool, error) {
	ctx, span := b.start(ctx, "bucket.Exists", "")
	defer span.End()

	ok, err := b.bucket.Exists(ctx)

	return ok, recordError(span, err)
}

func (b *traceBucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	ctx, span := b.start(ctx, "bucket.GetBlob", name)
	defer span.End()

	blob, err := b.bucket.GetBlob(ctx, name)
	if blob != nil {
		span.SetAttributes(BlobSize(blob.Size), BlobModTime(blob.ModTime().UTC()))
	}

	return b.wrapBlob(blob), recordError(span, err)
}

func (b *traceBucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	ctx, span := b.start(ctx, "bucket.CopyBlob", src.Name)
	defer span.End()

	span.SetAttributes(Target(target.Name() + "/" + name))

	blob, err := b.bucket.CopyBlob(ctx, unwrapBlob(src), target, name)
	if err != nil {
		return nil, recordError(span, err)
	}

	if tb, ok := target.(*traceBucket); ok {
		return tb.wrapBlob(blob), nil
	}

	return blob, nil
}

func (b *traceBucket) DeleteBlob(ctx context.Context, blob *pathy.Blob) error {
	ctx, span := b.start(ctx, "bucket.DeleteBlob", blob.Name)
	defer span.End()

	return recordError(span, b.bucket.DeleteBlob(ctx, unwrapBlob(blob)))
}

func (b *traceBucket) DeleteBlobs(ctx context.Context, blobs []*pathy.Blob) error {
	ctx, span := b.start(ctx, "bucket.DeleteBlobs", "")
	defer span.End()

	span.SetAttributes(Count(len(blobs)))

	inner := make([]*pathy.Blob, len(blobs))
	for i, blob := range blobs {
		inner[i] = unwrapBlob(blob)
	}

	return recordError(span, b.bucket.DeleteBlobs(ctx, inner))
}

func (b *traceBucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	ctx, span := b.start(ctx, "bucket.NewReader", name)
	defer span.End()

	r, err := b.bucket.NewReader(ctx, name)
	if err != nil {
		return nil, recordError(span, err)
	}

	return &traceReader{r: r, b: b, ctx: ctx, name: name}, nil
}

func (b *traceBucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	ctx, span := b.start(ctx, "bucket.NewWriter", name)
	defer span.End()

	w, err := b.bucket.NewWriter(ctx, name, opts)
	if err != nil {
		return nil, recordError(span, err)
	}

	return &traceWriter{w: w, b: b, ctx: ctx, name: name}, nil
}

func (b *traceBucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	return func(yield func(pathy.BucketEntry, error) bool) {
		ctx, span := b.start(ctx, "bucket.Walk", "")
		defer span.End()

		span.SetAttributes(Prefix(opts.Prefix))

		n := 0

		defer func() { span.SetAttributes(Count(n)) }()

		for entry, err := range b.bucket.Walk(ctx, opts) {
			if err != nil {
				yield(entry, recordError(span, err))

				return
			}

			n++

			if !yield(entry, nil) {
				return
			}
		}
	}
}
