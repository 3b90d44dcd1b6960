package gcsbucket

import (
	"context"
	"errors"
	"io"
	"iter"

	"cloud.google.com/go/storage"
	"github.com/hairyhenderson/go-pathy"
	"google.golang.org/api/iterator"
)

type bucket struct {
	client *Client
	handle *storage.BucketHandle
	name   string
}

var _ pathy.Bucket = (*bucket)(nil)

func (b *bucket) Name() string {
	return b.name
}

// Raw returns the *storage.BucketHandle
func (b *bucket) Raw() any {
	return b.handle
}

func (b *bucket) path(key string) string {
	return pathy.PurePath{Scheme: Scheme, Root: b.name, Key: key}.String()
}

func (b *bucket) Exists(ctx context.Context) (bool, error) {
	lb, err := b.client.LookupBucket(ctx, pathy.PurePath{Scheme: Scheme, Root: b.name})

	return lb != nil, err
}

func (b *bucket) blob(attrs *storage.ObjectAttrs) *pathy.Blob {
	return &pathy.Blob{
		Bucket:      b,
		Raw:         attrs,
		Name:        attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.Updated.Unix(),
	}
}

func (b *bucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	attrs, err := b.handle.Object(name).Attrs(ctx)

	err = toError("get blob", b.path(name), err)
	if pathy.IsNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return b.blob(attrs), nil
}

// CopyBlob copies server-side when the target is a GCS bucket, and streams
// the content otherwise.
func (b *bucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	dst, ok := pathy.UnwrapBucket(target).(*bucket)
	if !ok {
		return pathy.CopyByStream(ctx, src, target, name)
	}

	attrs, err := dst.handle.Object(name).CopierFrom(b.handle.Object(src.Name)).Run(ctx)
	if err != nil {
		return nil, toError("copy blob", b.path(src.Name), err)
	}

	return dst.blob(attrs), nil
}

func (b *bucket) DeleteBlob(ctx context.Context, blob *pathy.Blob) error {
	return toError("delete blob", b.path(blob.Name), b.handle.Object(blob.Name).Delete(ctx))
}

// DeleteBlobs deletes the blobs one at a time, stopping at the first failure.
func (b *bucket) DeleteBlobs(ctx context.Context, blobs []*pathy.Blob) error {
	for _, blob := range blobs {
		if err := b.DeleteBlob(ctx, blob); err != nil {
			return err
		}
	}

	return nil
}

func (b *bucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := b.handle.Object(name).NewReader(ctx)
	if err != nil {
		return nil, toError("open", b.path(name), err)
	}

	return r, nil
}

func (b *bucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	w := b.handle.Object(name).NewWriter(ctx)
	if opts != nil && opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}

	return &writer{Writer: w, path: b.path(name)}, nil
}

// writer translates errors from the upload, which surface on Close
type writer struct {
	*storage.Writer
	path string
}

func (w *writer) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)

	return n, toError("create", w.path, err)
}

func (w *writer) Close() error {
	return toError("create", w.path, w.Writer.Close())
}

func (b *bucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	q := &storage.Query{Prefix: opts.Prefix, Delimiter: opts.Delimiter}
	if q.Delimiter == "" {
		q.Delimiter = pathy.Sep
	}

	return func(yield func(pathy.BucketEntry, error) bool) {
		for attrs, err := range b.objects(ctx, q, opts.PageSize) {
			if err != nil {
				yield(pathy.BucketEntry{}, err)

				return
			}

			var entry pathy.BucketEntry
			if attrs.Prefix != "" {
				entry = pathy.DirEntry(attrs.Prefix, attrs)
			} else {
				entry = pathy.FileEntry(attrs.Name, attrs.Size, attrs.Updated.Unix(), attrs)
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

// objects adapts an ObjectIterator to a sequence. With a delimiter set,
// common prefixes are yielded as attrs with only Prefix set.
func (b *bucket) objects(ctx context.Context, q *storage.Query, pageSize int) iter.Seq2[*storage.ObjectAttrs, error] {
	return func(yield func(*storage.ObjectAttrs, error) bool) {
		it := b.handle.Objects(ctx, q)
		if pageSize > 0 {
			it.PageInfo().MaxSize = pageSize
		}

		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}

			if err != nil {
				yield(nil, toError("list", b.path(q.Prefix), err))

				return
			}

			if !yield(attrs, nil) {
				return
			}
		}
	}
}
