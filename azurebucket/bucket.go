package azurebucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/hairyhenderson/go-pathy"
)

// value dereferences p, returning the zero value for nil
func value[T any](p *T) T {
	if p == nil {
		var zero T

		return zero
	}

	return *p
}

func unix(t *time.Time) int64 {
	if t == nil {
		return 0
	}

	return t.Unix()
}

type bucket struct {
	client *Client
	raw    any
	name   string
}

var _ pathy.Bucket = (*bucket)(nil)

func (b *bucket) Name() string {
	return b.name
}

// Raw returns the *container.Client when the client wraps a native service
// client, and otherwise whatever the container was listed or fetched as.
func (b *bucket) Raw() any {
	if b.client.raw != nil {
		return b.client.raw.ServiceClient().NewContainerClient(b.name)
	}

	return b.raw
}

func (b *bucket) path(key string) string {
	return pathy.PurePath{Scheme: Scheme, Root: b.name, Key: key}.String()
}

func (b *bucket) Exists(ctx context.Context) (bool, error) {
	lb, err := b.client.LookupBucket(ctx, pathy.PurePath{Scheme: Scheme, Root: b.name})

	return lb != nil, err
}

func (b *bucket) blob(item *container.BlobItem) *pathy.Blob {
	blob := &pathy.Blob{Bucket: b, Raw: item, Name: value(item.Name)}

	if props := item.Properties; props != nil {
		blob.ContentType = value(props.ContentType)
		blob.Size = value(props.ContentLength)
		blob.Updated = unix(props.LastModified)
	}

	return blob
}

func (b *bucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	props, err := b.client.api.GetBlobProperties(ctx, b.name, name)

	err = toError("get blob", b.path(name), err)
	if pathy.IsNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &pathy.Blob{
		Bucket:      b,
		Raw:         props,
		Name:        name,
		ContentType: value(props.ContentType),
		Size:        value(props.ContentLength),
		Updated:     unix(props.LastModified),
	}, nil
}

// CopyBlob copies server-side when the target is a container in the same
// account, and streams the content otherwise.
func (b *bucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	dst, ok := pathy.UnwrapBucket(target).(*bucket)
	if !ok || dst.client.api != b.client.api {
		return pathy.CopyByStream(ctx, src, target, name)
	}

	if err := b.client.api.CopyBlob(ctx, b.name, src.Name, dst.name, name); err != nil {
		return nil, toError("copy blob", b.path(src.Name), err)
	}

	blob, err := dst.GetBlob(ctx, name)
	if err != nil {
		return nil, err
	}

	if blob == nil {
		return nil, pathy.NewError("copy blob", dst.path(name), pathy.ErrNotFound, nil)
	}

	return blob, nil
}

func (b *bucket) DeleteBlob(ctx context.Context, blob *pathy.Blob) error {
	_, err := b.client.api.DeleteBlob(ctx, b.name, blob.Name, nil)

	return toError("delete blob", b.path(blob.Name), err)
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
	resp, err := b.client.api.DownloadStream(ctx, b.name, name, nil)
	if err != nil {
		return nil, toError("open", b.path(name), err)
	}

	return resp.Body, nil
}

func (b *bucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	w := &writer{ctx: ctx, bucket: b, name: name}
	if opts != nil {
		w.contentType = opts.ContentType
	}

	return w, nil
}

// writer buffers the blob's content and uploads it on Close
type writer struct {
	ctx         context.Context
	bucket      *bucket
	name        string
	contentType string
	buf         bytes.Buffer
	closed      bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write %s: writer closed", w.name)
	}

	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	opts := &azblob.UploadStreamOptions{}
	if w.contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(w.contentType)}
	}

	_, err := w.bucket.client.api.UploadStream(w.ctx, w.bucket.name, w.name, bytes.NewReader(w.buf.Bytes()), opts)

	return toError("create", w.bucket.path(w.name), err)
}

func (b *bucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	delim := opts.Delimiter
	if delim == "" {
		delim = pathy.Sep
	}

	return func(yield func(pathy.BucketEntry, error) bool) {
		for seg, err := range b.hierarchy(ctx, opts.Prefix, delim, opts.PageSize) {
			if err != nil {
				yield(pathy.BucketEntry{}, err)

				return
			}

			for _, entry := range segmentEntries(seg) {
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

// segmentEntries merges a listing segment's prefixes and blobs in name order.
func segmentEntries(seg *container.BlobHierarchyListSegment) []pathy.BucketEntry {
	out := make([]pathy.BucketEntry, 0, len(seg.BlobPrefixes)+len(seg.BlobItems))

	i, j := 0, 0
	for i < len(seg.BlobPrefixes) || j < len(seg.BlobItems) {
		if j == len(seg.BlobItems) ||
			(i < len(seg.BlobPrefixes) && value(seg.BlobPrefixes[i].Name) < value(seg.BlobItems[j].Name)) {
			bp := seg.BlobPrefixes[i]
			out = append(out, pathy.DirEntry(value(bp.Name), bp))
			i++

			continue
		}

		item := seg.BlobItems[j]

		var size, updated int64
		if item.Properties != nil {
			size = value(item.Properties.ContentLength)
			updated = unix(item.Properties.LastModified)
		}

		out = append(out, pathy.FileEntry(value(item.Name), size, updated, item))
		j++
	}

	return out
}

func listOptions(prefix string, pageSize int) (*string, *int32) {
	var p *string
	if prefix != "" {
		p = to.Ptr(prefix)
	}

	var n *int32
	if pageSize > 0 {
		n = to.Ptr(int32(pageSize)) //nolint:gosec
	}

	return p, n
}

// hierarchy lists the container one segment (page) at a time
func (b *bucket) hierarchy(ctx context.Context, prefix, delim string, pageSize int) iter.Seq2[*container.BlobHierarchyListSegment, error] {
	return func(yield func(*container.BlobHierarchyListSegment, error) bool) {
		o := &container.ListBlobsHierarchyOptions{}
		o.Prefix, o.MaxResults = listOptions(prefix, pageSize)

		pager := b.client.api.NewListBlobsHierarchyPager(b.name, delim, o)

		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, toError("list", b.path(prefix), err))

				return
			}

			seg := page.Segment
			if seg == nil {
				seg = &container.BlobHierarchyListSegment{}
			}

			if !yield(seg, nil) {
				return
			}
		}
	}
}

// hierarchyItems lists only the blobs directly under the prefix
func (b *bucket) hierarchyItems(ctx context.Context, prefix, delim string, pageSize int) iter.Seq2[*container.BlobItem, error] {
	return func(yield func(*container.BlobItem, error) bool) {
		for seg, err := range b.hierarchy(ctx, prefix, delim, pageSize) {
			if err != nil {
				yield(nil, err)

				return
			}

			for _, item := range seg.BlobItems {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// flat lists every blob under the prefix
func (b *bucket) flat(ctx context.Context, prefix string, pageSize int) iter.Seq2[*container.BlobItem, error] {
	return func(yield func(*container.BlobItem, error) bool) {
		o := &azblob.ListBlobsFlatOptions{}
		o.Prefix, o.MaxResults = listOptions(prefix, pageSize)

		pager := b.client.api.NewListBlobsFlatPager(b.name, o)

		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, toError("list", b.path(prefix), err))

				return
			}

			if page.Segment == nil {
				continue
			}

			for _, item := range page.Segment.BlobItems {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
