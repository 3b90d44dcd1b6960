package tracebucket

import (
	"context"
	"io"
)

// traceReader counts the bytes read, and reports them in a span when closed
type traceReader struct {
	r    io.ReadCloser
	b    *traceBucket
	ctx  context.Context
	name string
	n    int64
}

func (r *traceReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)

	return n, err
}

func (r *traceReader) Close() error {
	_, span := r.b.start(r.ctx, "reader.Close", r.name)
	defer span.End()

	span.SetAttributes(BytesRead(r.n))

	return recordError(span, r.r.Close())
}

// traceWriter counts the bytes written. The upload is usually committed on
// Close, so that is traced.
type traceWriter struct {
	w    io.WriteCloser
	b    *traceBucket
	ctx  context.Context
	name string
	n    int64
}

func (w *traceWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)

	return n, err
}

func (w *traceWriter) Close() error {
	_, span := w.b.start(w.ctx, "writer.Close", w.name)
	defer span.End()

	span.SetAttributes(BytesWritten(w.n))

	return recordError(span, w.w.Close())
}
