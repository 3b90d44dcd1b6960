package pathy

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error kinds. Every error returned by a BucketClient or Bucket can be matched
// against exactly one of these with errors.Is.
var (
	// ErrNotFound is returned when a bucket or blob is required to exist but
	// does not. It is the same value as fs.ErrNotExist.
	ErrNotFound = fs.ErrNotExist

	// ErrAlreadyExists is returned when creating a bucket whose name is taken.
	// It is the same value as fs.ErrExist.
	ErrAlreadyExists = fs.ErrExist

	// ErrInvalidName is returned when a name violates the backend's naming
	// rules.
	ErrInvalidName = errors.New("invalid name")

	// ErrBackend marks any other failure reported by the native client.
	ErrBackend = errors.New("backend error")
)

// Error records a failed bucket operation, the path it was operating on, the
// kind of failure, and the underlying native error (if any).
type Error struct {
	Kind error
	Err  error
	Op   string
	Path string
}

// NewError returns an *Error. A nil kind is treated as ErrBackend. If err is
// nil, the kind alone describes the failure.
func NewError(op, path string, kind, err error) error {
	if kind == nil {
		kind = ErrBackend
	}

	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}

	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap allows both the kind and the native error to be reached by
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
