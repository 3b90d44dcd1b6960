package pathy_test

import (
	"context"
	"testing"

	"github.com/hairyhenderson/go-pathy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func globStrings(t *testing.T, p *pathy.Pathy, pattern string, recursive bool) []string {
	t.Helper()

	seq := p.Glob(context.Background(), pattern)
	if recursive {
		seq = p.RGlob(context.Background(), pattern)
	}

	out := []string{}

	for m, err := range seq {
		require.NoError(t, err)

		out = append(out, m.String())
	}

	return out
}

func TestGlob(t *testing.T) {
	reg := setupRegistry(t)
	bucket := mustPath(t, reg, "mem://mybucket")

	testdata := []struct {
		pattern   string
		expected  []string
		recursive bool
	}{
		{"*", []string{"mem://mybucket/file1", "mem://mybucket/dir1", "mem://mybucket/dir2"}, false},
		{"dir*", []string{"mem://mybucket/dir1", "mem://mybucket/dir2"}, false},
		{"dir1/*.txt", []string{"mem://mybucket/dir1/file2.txt"}, false},
		{"*/file?", []string{"mem://mybucket/dir1/file1"}, false},
		{"dir2/sub1/subfile1", []string{"mem://mybucket/dir2/sub1/subfile1"}, false},
		{"dir2/sub1/missing", []string{}, false},
		{"**/*.txt", []string{"mem://mybucket/dir1/file2.txt", "mem://mybucket/dir2/sub1/data.txt"}, false},
		{"*.txt", []string{"mem://mybucket/dir1/file2.txt", "mem://mybucket/dir2/sub1/data.txt"}, true},
		{"sub1", []string{"mem://mybucket/dir2/sub1"}, true},
		{"dir[2]/*", []string{"mem://mybucket/dir2/sub1"}, false},
		{"**", []string{"mem://mybucket", "mem://mybucket/dir1", "mem://mybucket/dir2", "mem://mybucket/dir2/sub1"}, false},
	}

	for _, d := range testdata {
		t.Run(d.pattern, func(t *testing.T) {
			assert.ElementsMatch(t, d.expected, globStrings(t, bucket, d.pattern, d.recursive))
		})
	}
}

func TestGlob_SchemeRoot(t *testing.T) {
	reg := setupRegistry(t)

	assert.Equal(t, []string{"mem://mybucket/file1"},
		globStrings(t, mustPath(t, reg, "mem://"), "*/file1", false))
}

func TestGlob_Errors(t *testing.T) {
	reg := setupRegistry(t)
	bucket := mustPath(t, reg, "mem://mybucket")

	var err error

	for _, e := range bucket.Glob(context.Background(), "dir[") {
		err = e
	}

	require.ErrorIs(t, err, pathy.ErrInvalidName)

	n := 0

	for range bucket.Glob(context.Background(), "") {
		n++
	}

	assert.Zero(t, n)

	// stopping early must not panic
	for range bucket.RGlob(context.Background(), "*") {
		break
	}
}
