package pathy

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nativeErr struct{ code int }

func (e *nativeErr) Error() string { return "native" }

func TestError(t *testing.T) {
	native := &nativeErr{code: 404}

	err := NewError("get blob", "gs://bucket/key", ErrNotFound, native)
	assert.EqualError(t, err, "get blob gs://bucket/key: file does not exist: native")

	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrBackend)
	assert.True(t, IsNotFound(err))

	var ne *nativeErr

	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 404, ne.code)

	var pe *Error

	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get blob", pe.Op)
	assert.Equal(t, "gs://bucket/key", pe.Path)

	err = NewError("create bucket", "b", nil, nil)
	require.ErrorIs(t, err, ErrBackend)
	assert.EqualError(t, err, "create bucket b: backend error")
	assert.False(t, IsNotFound(err))

	err = NewError("create bucket", "b", ErrAlreadyExists, nil)
	require.ErrorIs(t, err, fs.ErrExist)
	assert.False(t, errors.Is(err, ErrInvalidName))
}

func TestAsFS(t *testing.T) {
	require.NoError(t, AsFS("open", "x", nil))

	err := AsFS("open", "x", NewError("get blob", "gs://b/x", ErrNotFound, nil))

	var pe *fs.PathError

	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "x", pe.Path)
	require.ErrorIs(t, err, fs.ErrNotExist)

	other := NewError("get blob", "gs://b/x", ErrBackend, nil)
	assert.Same(t, other, AsFS("open", "x", other))
}
