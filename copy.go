package pathy

import (
	"context"
	"fmt"
	"io"
)

// CopyByStream copies src into target by reading it from its own bucket and
// writing it through target's writer. Backends use it when no server-side copy
// is available between the two buckets.
func CopyByStream(ctx context.Context, src *Blob, target Bucket, name string) (*Blob, error) {
	if src == nil || src.Bucket == nil {
		return nil, NewError("copy", name, ErrNotFound, fmt.Errorf("source blob has no bucket"))
	}

	r, err := src.Bucket.NewReader(ctx, src.Name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	w, err := target.NewWriter(ctx, name, &WriterOptions{ContentType: src.ContentType})
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()

		return nil, NewError("copy", name, ErrBackend, err)
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	blob, err := target.GetBlob(ctx, name)
	if err != nil {
		return nil, err
	}

	if blob == nil {
		return nil, NewError("copy", name, ErrNotFound, nil)
	}

	return blob, nil
}
