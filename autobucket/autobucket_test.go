package autobucket

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/hairyhenderson/go-pathy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func TestRegister(t *testing.T) {
	reg := Register(pathy.NewRegistry(), fstest.MapFS{})

	assert.Equal(t, []string{"azure", "file", "gs", "mem", "s3"}, reg.Schemes())

	ctx := context.Background()

	p, err := reg.New("mem://bucket/a/b.txt")
	require.NoError(t, err)

	require.NoError(t, p.Parent().Mkdir(ctx, &pathy.MkdirOptions{Parents: true}))

	require.NoError(t, p.WriteText(ctx, "hello"))

	s, err := p.ReadText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	require.NoError(t, reg.Close())
}

func TestRegister_FileRootFromEnv(t *testing.T) {
	tmpDir := fs.NewDir(t, "pathy-test", fs.WithDir("bucket", fs.WithFile("hello.txt", "hi there")))
	t.Setenv("PATHY_FS_ROOT", tmpDir.Path())

	reg := Register(pathy.NewRegistry())

	p, err := reg.New("file://bucket/hello.txt")
	require.NoError(t, err)

	s, err := p.ReadText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi there", s)
}

func TestDefault(t *testing.T) {
	reg := Default()
	assert.Same(t, pathy.DefaultRegistry(), reg)
	assert.Same(t, reg, Default())
	assert.Contains(t, reg.Schemes(), "s3")
}
