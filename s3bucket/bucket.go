package s3bucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hairyhenderson/go-pathy"
)

// DeleteObjects accepts at most this many keys per request
const maxDeleteBatch = 1000

type bucket struct {
	client *Client
	raw    *types.Bucket
	name   string
}

var _ pathy.Bucket = (*bucket)(nil)

func (b *bucket) Name() string {
	return b.name
}

// Raw returns the *types.Bucket
func (b *bucket) Raw() any {
	return b.raw
}

func (b *bucket) path(key string) string {
	return pathy.PurePath{Scheme: Scheme, Root: b.name, Key: key}.String()
}

func (b *bucket) Exists(ctx context.Context) (bool, error) {
	lb, err := b.client.LookupBucket(ctx, pathy.PurePath{Scheme: Scheme, Root: b.name})

	return lb != nil, err
}

func (b *bucket) GetBlob(ctx context.Context, name string) (*pathy.Blob, error) {
	out, err := b.client.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(name),
	})

	err = toError("get blob", b.path(name), err)
	if pathy.IsNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &pathy.Blob{
		Bucket:      b,
		Raw:         out,
		Name:        name,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		Updated:     aws.ToTime(out.LastModified).Unix(),
	}, nil
}

func (b *bucket) blobFromObject(obj types.Object) *pathy.Blob {
	return &pathy.Blob{
		Bucket:  b,
		Raw:     obj,
		Name:    aws.ToString(obj.Key),
		Size:    aws.ToInt64(obj.Size),
		Updated: aws.ToTime(obj.LastModified).Unix(),
	}
}

// copySource formats the x-amz-copy-source value for a blob
func copySource(bucket, key string) string {
	segs := strings.Split(key, pathy.Sep)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}

	return bucket + "/" + strings.Join(segs, "/")
}

// CopyBlob copies server-side when the target is an S3 bucket reachable by
// the same client, and streams the content otherwise.
func (b *bucket) CopyBlob(ctx context.Context, src *pathy.Blob, target pathy.Bucket, name string) (*pathy.Blob, error) {
	dst, ok := pathy.UnwrapBucket(target).(*bucket)
	if !ok || dst.client.s3 != b.client.s3 {
		return pathy.CopyByStream(ctx, src, target, name)
	}

	_, err := b.client.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.name),
		Key:        aws.String(name),
		CopySource: aws.String(copySource(b.name, src.Name)),
	})
	if err != nil {
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
	_, err := b.client.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(blob.Name),
	})

	return toError("delete blob", b.path(blob.Name), err)
}

// DeleteBlobs deletes the blobs with DeleteObjects, in batches.
func (b *bucket) DeleteBlobs(ctx context.Context, blobs []*pathy.Blob) error {
	for start := 0; start < len(blobs); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(blobs))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, blob := range blobs[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(blob.Name)})
		}

		out, err := b.client.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.name),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return toError("delete blobs", b.path(""), err)
		}

		if len(out.Errors) > 0 {
			errs := make([]error, 0, len(out.Errors))
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("%s: %s: %s",
					aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
			}

			return pathy.NewError("delete blobs", b.path(""), pathy.ErrBackend, errors.Join(errs...))
		}
	}

	return nil
}

func (b *bucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := b.client.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, toError("open", b.path(name), err)
	}

	return out.Body, nil
}

func (b *bucket) NewWriter(ctx context.Context, name string, opts *pathy.WriterOptions) (io.WriteCloser, error) {
	w := &writer{ctx: ctx, bucket: b, key: name}
	if opts != nil {
		w.contentType = opts.ContentType
	}

	return w, nil
}

// writer buffers the blob's content and uploads it on Close
type writer struct {
	ctx         context.Context
	bucket      *bucket
	key         string
	contentType string
	buf         bytes.Buffer
	closed      bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write %s: writer closed", w.key)
	}

	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	in := &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket.name),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
	}

	if w.contentType != "" {
		in.ContentType = aws.String(w.contentType)
	}

	_, err := w.bucket.client.s3.PutObject(w.ctx, in)

	return toError("create", w.bucket.path(w.key), err)
}

func (b *bucket) Walk(ctx context.Context, opts pathy.WalkOptions) iter.Seq2[pathy.BucketEntry, error] {
	delim := opts.Delimiter
	if delim == "" {
		delim = pathy.Sep
	}

	return func(yield func(pathy.BucketEntry, error) bool) {
		for page, err := range b.pages(ctx, opts.Prefix, delim, opts.PageSize) {
			if err != nil {
				yield(pathy.BucketEntry{}, err)

				return
			}

			for _, entry := range pageEntries(page) {
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

// pageEntries merges a page's common prefixes and objects in key order.
func pageEntries(page *s3.ListObjectsV2Output) []pathy.BucketEntry {
	out := make([]pathy.BucketEntry, 0, len(page.CommonPrefixes)+len(page.Contents))

	i, j := 0, 0
	for i < len(page.CommonPrefixes) || j < len(page.Contents) {
		if j == len(page.Contents) ||
			(i < len(page.CommonPrefixes) && aws.ToString(page.CommonPrefixes[i].Prefix) < aws.ToString(page.Contents[j].Key)) {
			cp := page.CommonPrefixes[i]
			out = append(out, pathy.DirEntry(aws.ToString(cp.Prefix), cp))
			i++

			continue
		}

		obj := page.Contents[j]
		out = append(out, pathy.FileEntry(aws.ToString(obj.Key),
			aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified).Unix(), obj))
		j++
	}

	return out
}

// pages lists the bucket with ListObjectsV2, one page per iteration
func (b *bucket) pages(ctx context.Context, prefix, delim string, pageSize int) iter.Seq2[*s3.ListObjectsV2Output, error] {
	return func(yield func(*s3.ListObjectsV2Output, error) bool) {
		in := &s3.ListObjectsV2Input{Bucket: aws.String(b.name)}
		if prefix != "" {
			in.Prefix = aws.String(prefix)
		}

		if delim != "" {
			in.Delimiter = aws.String(delim)
		}

		if pageSize > 0 {
			in.MaxKeys = aws.Int32(int32(pageSize)) //nolint:gosec
		}

		pager := s3.NewListObjectsV2Paginator(b.client.s3, in)

		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, toError("list", b.path(prefix), err))

				return
			}

			if !yield(page, nil) {
				return
			}
		}
	}
}
