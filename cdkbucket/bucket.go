package cdkbucket

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"

	"github.com/hairyhenderson/go-pathy"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

type bucket struct {
	client *Client
	bkt    *blob.Bucket
	name   string
}

var _ pathy.Bucket = (*bucket)(nil)

func (b *bucket) Name() string {
	return b.name
}

// Raw returns the *blob.Bucket
func (b *bucket) Raw() any {
	return b.bkt
}

func (b *bucket) path(key string) string {
	return pathy.PurePath{Scheme: b.client.scheme, Root: b.name, Key: key}.String()
}

func (b *bucket) Exists(ctx context.Context) (bool, error) {
	lb, err := b.client.LookupBucket(ctx, pathy.PurePath{Scheme: b.client.scheme, Root: b.name})

	return lb != nil, err
}

func (b *bucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	attrs, err := b.bkt.Attributes(ctx, name)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}

	if err != nil {
		return nil, toError("get blob", b.path(name), err)
	}

	return &pathy.Blob{
		Bucket:      b,
		Raw:         attrs,
		Name:        name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.ModTime.Unix(),
	}, nil
}

func (b *bucket) blobFromList(obj *blob.ListObject) *pathy.Blob {
	return &pathy.Blob{
		Bucket:  b,
		Raw:     obj,
		Name:    obj.Key,
		Size:    obj.Size,
		Updated: obj.ModTime.Unix(),
	}
}

// CopyBlob copies within a bucket with the Go CDK, and streams the content
// for any other target.
func (b *bucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	dst, ok := pathy.UnwrapBucket(target).(*bucket)
	if !ok || dst.bkt != b.bkt {
		return pathy.CopyByStream(ctx, src, target, name)
	}

	if err := b.bkt.Copy(ctx, name, src.Name, nil); err != nil {
		return nil, toError("copy blob", b.path(src.Name), err)
	}

	blob, err := b.GetBlob(ctx, name)
	if err != nil {
		return nil, err
	}

	if blob == nil {
		return nil, pathy.NewError("copy blob", b.path(name), pathy.ErrNotFound, nil)
	}

	return blob, nil
}

func (b *bucket) DeleteBlob(ctx context.Context, blob *pathy.Blob) error {
	if err := b.bkt.Delete(ctx, blob.Name); err != nil {
		return toError("delete blob", b.path(blob.Name), err)
	}

	return nil
}

// DeleteBlobs deletes each blob in turn; the Go CDK has no batch delete.
func (b *bucket) DeleteBlobs(ctx context.Context, blobs []*pathy.Blob) error {
	for _, blob := range blobs {
		if err := b.DeleteBlob(ctx, blob); err != nil {
			return err
		}
	}

	return nil
}

func (b *bucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := b.bkt.NewReader(ctx, name, nil)
	if err != nil {
		return nil, toError("open", b.path(name), err)
	}

	return r, nil
}

func (b *bucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	wopts := &blob.WriterOptions{}
	if opts != nil {
		wopts.ContentType = opts.ContentType
	}

	w, err := b.bkt.NewWriter(ctx, name, wopts)
	if err != nil {
		return nil, toError("create", b.path(name), err)
	}

	return w, nil
}

func (b *bucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	delim := opts.Delimiter
	if delim == "" {
		delim = pathy.Sep
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return func(yield func(pathy.BucketEntry, error) bool) {
		for obj, err := range b.list(ctx, opts.Prefix, delim, pageSize) {
			if err != nil {
				yield(pathy.BucketEntry{}, err)

				return
			}

			entry := pathy.FileEntry(obj.Key, obj.Size, obj.ModTime.Unix(), obj)
			if obj.IsDir {
				entry = pathy.DirEntry(obj.Key, obj)
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

// list pages through the bucket, fetching the next page only once the
// previous one has been consumed.
func (b *bucket) list(ctx context.Context, prefix, delim string, pageSize int) iter.Seq2[*blob.ListObject, error] {
	return func(yield func(*blob.ListObject, error) bool) {
		opts := &blob.ListOptions{Prefix: prefix, Delimiter: delim}
		token := blob.FirstPageToken

		for {
			objs, next, err := b.bkt.ListPage(ctx, token, pageSize, opts)
			if err != nil {
				yield(nil, toError("list", b.path(prefix), err))

				return
			}

			for _, obj := range objs {
				if !yield(obj, nil) {
					return
				}
			}

			if len(next) == 0 {
				return
			}

			token = next
		}
	}
}

// toError translates Go CDK and local filesystem errors into pathy errors.
func toError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var kind error

	switch {
	case gcerrors.Code(err) == gcerrors.NotFound, errors.Is(err, fs.ErrNotExist):
		kind = pathy.ErrNotFound
	case gcerrors.Code(err) == gcerrors.AlreadyExists, errors.Is(err, fs.ErrExist):
		kind = pathy.ErrAlreadyExists
	case gcerrors.Code(err) == gcerrors.InvalidArgument, errors.Is(err, fs.ErrInvalid):
		kind = pathy.ErrInvalidName
	default:
		kind = pathy.ErrBackend
	}

	return pathy.NewError(op, path, kind, err)
}
