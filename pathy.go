package pathy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"strings"
	"time"

	"github.com/hairyhenderson/go-pathy/internal"
)

// Pathy is a path bound to a Registry, so that it can perform I/O through the
// client registered for its scheme.
type Pathy struct {
	reg *Registry
	PurePath
}

// New parses s and binds it to the default registry.
func New(s string) (*Pathy, error) {
	return DefaultRegistry().New(s)
}

// New parses s and binds it to this registry.
func (r *Registry) New(s string) (*Pathy, error) {
	p, err := Parse(s)
	if err != nil {
		return nil, err
	}

	return r.Path(p), nil
}

// Path binds an already-parsed path to this registry.
func (r *Registry) Path(p PurePath) *Pathy {
	return &Pathy{reg: r, PurePath: p}
}

func (p *Pathy) with(pp PurePath) *Pathy {
	return &Pathy{reg: p.reg, PurePath: pp}
}

// Join returns the path extended by the given segments.
func (p *Pathy) Join(elem ...string) *Pathy {
	return p.with(p.PurePath.Join(elem...))
}

// Parent returns the logical parent of the path.
func (p *Pathy) Parent() *Pathy {
	return p.with(p.PurePath.Parent())
}

// Client returns the live client for the path's scheme.
func (p *Pathy) Client(ctx context.Context) (BucketClient, error) {
	return p.reg.Client(ctx, p.Scheme)
}

func (p *Pathy) bucket(ctx context.Context) (BucketClient, Bucket, error) {
	c, err := p.Client(ctx)
	if err != nil {
		return nil, nil, err
	}

	b, err := c.GetBucket(ctx, p.PurePath)
	if err != nil {
		return nil, nil, err
	}

	return c, b, nil
}

// Exists reports whether the path is a blob, a "directory" containing at least
// one blob, or an existing bucket.
func (p *Pathy) Exists(ctx context.Context) (bool, error) {
	c, err := p.Client(ctx)
	if err != nil {
		return false, err
	}

	return c.Exists(ctx, p.PurePath)
}

// IsFile reports whether the path is a blob.
func (p *Pathy) IsFile(ctx context.Context) (bool, error) {
	blob, err := p.blob(ctx)

	return blob != nil, err
}

// IsDir reports whether the path is a bucket, the scheme root, or a prefix of
// at least one blob key.
func (p *Pathy) IsDir(ctx context.Context) (bool, error) {
	if p.IsSchemeRoot() {
		return true, nil
	}

	c, err := p.Client(ctx)
	if err != nil {
		return false, err
	}

	if p.Key == "" {
		b, err := c.LookupBucket(ctx, p.PurePath)

		return b != nil, err
	}

	opts := &ListBlobsOptions{Prefix: p.Key + Sep, PageSize: 1, Markers: true}
	for _, err := range c.ListBlobs(ctx, p.PurePath, opts) {
		return err == nil, err
	}

	return false, nil
}

// blob returns the blob at the path, or nil when there is none
func (p *Pathy) blob(ctx context.Context) (*Blob, error) {
	if p.Key == "" {
		return nil, nil
	}

	c, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}

	b, err := c.LookupBucket(ctx, p.PurePath)
	if err != nil || b == nil {
		return nil, err
	}

	return b.GetBlob(ctx, p.Key)
}

// Stat returns file information for the path. Directories are reported with a
// zero modification time.
func (p *Pathy) Stat(ctx context.Context) (fs.FileInfo, error) {
	blob, err := p.blob(ctx)
	if err != nil {
		return nil, err
	}

	if blob != nil {
		return blob.FileInfo(), nil
	}

	isDir, err := p.IsDir(ctx)
	if err != nil {
		return nil, err
	}

	if !isDir {
		return nil, NewError("stat", p.String(), ErrNotFound, nil)
	}

	return internal.DirInfo(p.Name(), time.Time{}), nil
}

// ScanDir lists the entries directly under the path.
func (p *Pathy) ScanDir(ctx context.Context) iter.Seq2[BucketEntry, error] {
	c, err := p.Client(ctx)
	if err != nil {
		return ErrSeq[BucketEntry](err)
	}

	return c.ScanDir(p.PurePath, nil).Entries(ctx)
}

// IterDir yields the paths directly under the path.
func (p *Pathy) IterDir(ctx context.Context) iter.Seq2[*Pathy, error] {
	return func(yield func(*Pathy, error) bool) {
		for entry, err := range p.ScanDir(ctx) {
			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(p.Join(entry.Name), nil) {
				return
			}
		}
	}
}

// MkdirOptions controls Mkdir.
type MkdirOptions struct {
	// Parents creates the bucket when making a directory inside a missing
	// bucket.
	Parents bool

	// ExistOK suppresses the error when the directory already exists.
	ExistOK bool
}

// Mkdir makes the path exist as a directory. Object stores have no real
// directories, so only a missing bucket is ever created: directories inside a
// bucket appear as soon as a blob is written beneath them.
func (p *Pathy) Mkdir(ctx context.Context, opts *MkdirOptions) error {
	if opts == nil {
		opts = &MkdirOptions{}
	}

	if p.IsSchemeRoot() {
		return NewError("mkdir", p.String(), ErrInvalidName, fmt.Errorf("no bucket named"))
	}

	c, err := p.Client(ctx)
	if err != nil {
		return err
	}

	b, err := c.LookupBucket(ctx, p.PurePath)
	if err != nil {
		return err
	}

	if b == nil {
		if p.Key != "" && !opts.Parents {
			return NewError("mkdir", p.String(), ErrNotFound, fmt.Errorf("bucket %q does not exist", p.Root))
		}

		_, err = c.CreateBucket(ctx, p.PurePath)

		return err
	}

	if opts.ExistOK {
		return nil
	}

	if p.Key == "" {
		return NewError("mkdir", p.String(), ErrAlreadyExists, nil)
	}

	exists, err := c.Exists(ctx, p.PurePath)
	if err != nil {
		return err
	}

	if exists {
		return NewError("mkdir", p.String(), ErrAlreadyExists, nil)
	}

	return nil
}

// Rmdir removes every blob beneath the path, directory markers included. When
// the path is a bucket root, the bucket itself is then deleted.
func (p *Pathy) Rmdir(ctx context.Context) error {
	if p.IsSchemeRoot() {
		return NewError("rmdir", p.String(), ErrInvalidName, fmt.Errorf("no bucket named"))
	}

	isFile, err := p.IsFile(ctx)
	if err != nil {
		return err
	}

	if isFile {
		return NewError("rmdir", p.String(), ErrInvalidName, fmt.Errorf("not a directory"))
	}

	c, b, err := p.bucket(ctx)
	if err != nil {
		return err
	}

	prefix := ""
	if p.Key != "" {
		prefix = p.Key + Sep
	}

	blobs, err := Collect(c.ListBlobs(ctx, p.PurePath, &ListBlobsOptions{Prefix: prefix, Markers: true}))
	if err != nil {
		return err
	}

	if p.Key != "" && len(blobs) == 0 {
		return NewError("rmdir", p.String(), ErrNotFound, nil)
	}

	p.reg.Logger().WithField("path", p.String()).WithField("blobs", len(blobs)).Debug("rmdir")

	if err := b.DeleteBlobs(ctx, blobs); err != nil {
		return err
	}

	if p.Key == "" {
		return c.DeleteBucket(ctx, p.PurePath)
	}

	return nil
}

// Unlink deletes the blob at the path. When missingOK is set, a missing blob
// is not an error.
func (p *Pathy) Unlink(ctx context.Context, missingOK bool) error {
	blob, err := p.blob(ctx)
	if err != nil {
		return err
	}

	if blob == nil {
		if missingOK {
			return nil
		}

		return NewError("unlink", p.String(), ErrNotFound, nil)
	}

	return blob.Bucket.DeleteBlob(ctx, blob)
}

// Open opens the blob at the path for reading.
func (p *Pathy) Open(ctx context.Context) (io.ReadCloser, error) {
	if p.Key == "" {
		return nil, NewError("open", p.String(), ErrInvalidName, fmt.Errorf("is a directory"))
	}

	_, b, err := p.bucket(ctx)
	if err != nil {
		return nil, err
	}

	return b.NewReader(ctx, p.Key)
}

// Create opens the blob at the path for writing, replacing any existing
// content when the writer is closed. Without an explicit content type, one is
// guessed from the key's extension.
func (p *Pathy) Create(ctx context.Context, opts *WriterOptions) (io.WriteCloser, error) {
	if p.Key == "" {
		return nil, NewError("create", p.String(), ErrInvalidName, fmt.Errorf("is a directory"))
	}

	_, b, err := p.bucket(ctx)
	if err != nil {
		return nil, err
	}

	o := WriterOptions{}
	if opts != nil {
		o = *opts
	}

	if o.ContentType == "" {
		o.ContentType = TypeByKey(p.Key)
	}

	return b.NewWriter(ctx, p.Key, &o)
}

// ReadBytes returns the content of the blob at the path.
func (p *Pathy) ReadBytes(ctx context.Context) ([]byte, error) {
	r, err := p.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// ReadText returns the content of the blob at the path as a string.
func (p *Pathy) ReadText(ctx context.Context) (string, error) {
	b, err := p.ReadBytes(ctx)

	return string(b), err
}

// WriteBytes replaces the content of the blob at the path.
func (p *Pathy) WriteBytes(ctx context.Context, data []byte) error {
	w, err := p.Create(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()

		return fmt.Errorf("write %s: %w", p, err)
	}

	return w.Close()
}

// WriteText replaces the content of the blob at the path.
func (p *Pathy) WriteText(ctx context.Context, s string) error {
	return p.WriteBytes(ctx, []byte(s))
}

// Touch creates an empty blob at the path. An existing blob is left untouched
// when existOK is set, and is an error otherwise.
func (p *Pathy) Touch(ctx context.Context, existOK bool) error {
	blob, err := p.blob(ctx)
	if err != nil {
		return err
	}

	if blob != nil {
		if existOK {
			return nil
		}

		return NewError("touch", p.String(), ErrAlreadyExists, nil)
	}

	return p.WriteBytes(ctx, nil)
}

// CopyTo copies the blob at the path to target, which may be in another
// bucket or backend, and returns the target path.
func (p *Pathy) CopyTo(ctx context.Context, target *Pathy) (*Pathy, error) {
	blob, err := p.blob(ctx)
	if err != nil {
		return nil, err
	}

	if blob == nil {
		return nil, NewError("copy", p.String(), ErrNotFound, nil)
	}

	if err := copyBlob(ctx, blob, target); err != nil {
		return nil, err
	}

	return target, nil
}

func copyBlob(ctx context.Context, blob *Blob, target *Pathy) error {
	if target.Key == "" {
		return NewError("copy", target.String(), ErrInvalidName, fmt.Errorf("target has no key"))
	}

	_, tb, err := target.bucket(ctx)
	if err != nil {
		return err
	}

	_, err = blob.Bucket.CopyBlob(ctx, blob, tb, target.Key)

	return err
}

// Rename moves the path to target and returns the target path. Renaming a
// directory moves every blob beneath it. Existing blobs at the target are
// overwritten.
func (p *Pathy) Rename(ctx context.Context, target *Pathy) (*Pathy, error) {
	if p.Key == "" || target.Key == "" {
		return nil, NewError("rename", p.String(), ErrInvalidName, fmt.Errorf("buckets cannot be renamed"))
	}

	if p.Samefile(target) {
		return target, nil
	}

	blob, err := p.blob(ctx)
	if err != nil {
		return nil, err
	}

	if blob != nil {
		if err := copyBlob(ctx, blob, target); err != nil {
			return nil, err
		}

		return target, blob.Bucket.DeleteBlob(ctx, blob)
	}

	return target, p.renameDir(ctx, target)
}

func (p *Pathy) renameDir(ctx context.Context, target *Pathy) error {
	c, b, err := p.bucket(ctx)
	if err != nil {
		return err
	}

	prefix := p.Key + Sep

	if strings.HasPrefix(target.Key+Sep, prefix) && target.Scheme == p.Scheme && target.Root == p.Root {
		return NewError("rename", target.String(), ErrInvalidName, fmt.Errorf("cannot move %s into itself", p))
	}

	blobs, err := Collect(c.ListBlobs(ctx, p.PurePath, &ListBlobsOptions{Prefix: prefix, Markers: true}))
	if err != nil {
		return err
	}

	if len(blobs) == 0 {
		return NewError("rename", p.String(), ErrNotFound, nil)
	}

	p.reg.Logger().WithField("from", p.String()).WithField("to", target.String()).
		WithField("blobs", len(blobs)).Debug("renaming directory")

	for _, blob := range blobs {
		// raw keys, so that markers keep their trailing Sep
		dst := target.with(PurePath{
			Scheme: target.Scheme,
			Root:   target.Root,
			Key:    target.Key + Sep + strings.TrimPrefix(blob.Name, prefix),
		})

		if err := copyBlob(ctx, blob, dst); err != nil {
			return err
		}
	}

	return b.DeleteBlobs(ctx, blobs)
}

// Replace is the same as Rename: the target is overwritten if it exists.
func (p *Pathy) Replace(ctx context.Context, target *Pathy) (*Pathy, error) {
	return p.Rename(ctx, target)
}

// Samefile reports whether both paths name the same location.
func (p *Pathy) Samefile(other *Pathy) bool {
	return other != nil && p.PurePath == other.PurePath
}

// AsFS returns the error as an *fs.PathError when it is a not-found error, for
// callers that expect io/fs conventions.
func AsFS(op, name string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}

	return err
}
