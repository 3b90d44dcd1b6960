package pathy

import (
	"context"
	"io"
	"io/fs"
	"iter"
	"time"

	"github.com/hairyhenderson/go-pathy/internal"
)

// Blob is a snapshot of one remote object.
type Blob struct {
	// Bucket is the bucket the blob was read from. It is a back-reference
	// only, and is valid no longer than the client that produced it.
	Bucket Bucket

	// Raw is the backend-native handle for the object. Only the backend that
	// produced the blob may interpret it.
	Raw any

	// Name is the full key of the blob within its bucket
	Name string

	// ContentType is the MIME type recorded for the blob, if any
	ContentType string

	// Size in bytes
	Size int64

	// Updated is the last-modified time, in seconds since the Unix epoch
	Updated int64
}

// ModTime returns the blob's last-modified time.
func (b *Blob) ModTime() time.Time {
	return time.Unix(b.Updated, 0)
}

// FileInfo returns an fs.FileInfo describing the blob. The name is the last
// segment of the key.
func (b *Blob) FileInfo() fs.FileInfo {
	return internal.FileInfo(baseName(b.Name), b.Size, 0o644, b.ModTime(), b.ContentType)
}

// BlobStat holds the metadata a BucketEntry carries for file entries.
type BlobStat struct {
	Size    int64
	Updated int64
}

// BucketEntry is one row of a directory listing. Directory entries carry no
// Stat; file entries always do.
type BucketEntry struct {
	Stat  *BlobStat
	Raw   any
	Name  string
	IsDir bool
}

// DirEntry returns a directory BucketEntry. raw may be nil for directories
// synthesized from a common prefix.
func DirEntry(name string, raw any) BucketEntry {
	return BucketEntry{Name: name, IsDir: true, Raw: raw}
}

// FileEntry returns a file BucketEntry with the given size and modification
// time (in epoch seconds).
func FileEntry(name string, size, updated int64, raw any) BucketEntry {
	return BucketEntry{
		Name: name,
		Stat: &BlobStat{Size: size, Updated: updated},
		Raw:  raw,
	}
}

// DirEntry adapts the entry to an fs.DirEntry.
func (e BucketEntry) DirEntry() fs.DirEntry {
	if e.IsDir || e.Stat == nil {
		return internal.FileInfoDirEntry(internal.DirInfo(e.Name, time.Time{}))
	}

	fi := internal.FileInfo(e.Name, e.Stat.Size, 0o644, time.Unix(e.Stat.Updated, 0), "")

	return internal.FileInfoDirEntry(fi)
}

// WriterOptions controls how a blob is written.
type WriterOptions struct {
	// ContentType sets the blob's MIME type. When empty, backends either
	// detect it or leave it unset.
	ContentType string
}

// WalkOptions controls a hierarchical listing of a bucket.
type WalkOptions struct {
	// Prefix restricts the listing to keys beginning with this string. It is
	// passed through unchanged, so directory listings should end it with the
	// delimiter.
	Prefix string

	// Delimiter groups keys sharing a prefix up to the delimiter into a single
	// directory entry. Defaults to Sep.
	Delimiter string

	// PageSize is a hint for the number of results requested per native page.
	// Zero means the backend default.
	PageSize int
}

// Bucket is a backend container: an S3 or GCS bucket, an Azure container, or
// similar.
type Bucket interface {
	// Name returns the name of the bucket
	Name() string

	// Raw returns the backend-native handle for the bucket
	Raw() any

	// Exists reports whether the bucket currently exists.
	Exists(ctx context.Context) (bool, error)

	// GetBlob returns the blob with exactly the given key, including its size
	// and modification time. A missing blob is reported as (nil, nil).
	GetBlob(ctx context.Context, name string) (*Blob, error)

	// CopyBlob copies src to the target bucket under the given name, and
	// returns the new blob.
	CopyBlob(ctx context.Context, src *Blob, target Bucket, name string) (*Blob, error)

	// DeleteBlob deletes one blob.
	DeleteBlob(ctx context.Context, blob *Blob) error

	// DeleteBlobs deletes all the given blobs. An empty slice is a no-op.
	DeleteBlobs(ctx context.Context, blobs []*Blob) error

	// NewReader opens the named blob for reading.
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)

	// NewWriter opens the named blob for writing. The blob is committed when
	// the writer is closed.
	NewWriter(ctx context.Context, name string, opts *WriterOptions) (io.WriteCloser, error)

	// Walk lists the bucket hierarchically, yielding one entry per object and
	// one per common prefix. Entry names are full keys; prefixes keep their
	// trailing delimiter.
	Walk(ctx context.Context, opts WalkOptions) iter.Seq2[BucketEntry, error]
}

// UnwrapBucket returns the innermost bucket of a chain of decorators (such as
// those in the tracebucket and metricbucket packages). Decorators expose the
// bucket they wrap with an Unwrap method.
func UnwrapBucket(b Bucket) Bucket {
	for {
		u, ok := b.(interface{ Unwrap() Bucket })
		if !ok {
			return b
		}

		b = u.Unwrap()
	}
}

func baseName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}

	return key
}
