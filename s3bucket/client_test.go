package s3bucket

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hairyhenderson/go-pathy"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFile(backend gofakes3.Backend, file, mime, content string) error {
	_, err := backend.PutObject(
		"mybucket",
		file,
		map[string]string{"Content-Type": mime},
		bytes.NewBufferString(content),
		int64(len(content)),
	)

	return err
}

func setupTestClient(t *testing.T) *Client {
	t.Helper()

	c, _ := setupCountingClient(t)

	return c
}

// setupCountingClient also returns the number of requests served by the fake
func setupCountingClient(t *testing.T) (*Client, *atomic.Int64) {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	handler := faker.Server()

	requests := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, backend.CreateBucket("mybucket"))
	require.NoError(t, putFile(backend, "file1", "text/plain", "hello"))
	require.NoError(t, putFile(backend, "file2", "application/json", `{"value": "goodbye world"}`))
	require.NoError(t, putFile(backend, "file3", "application/yaml", `value: what a world`))
	require.NoError(t, putFile(backend, "dir1/file1", "application/yaml", `value: out of this world`))
	require.NoError(t, putFile(backend, "dir1/file2", "application/yaml", `value: foo`))
	require.NoError(t, putFile(backend, "dir2/file3", "text/plain", "foo"))
	require.NoError(t, putFile(backend, "dir2/file4", "text/plain", "bar"))
	require.NoError(t, putFile(backend, "dir2/sub1/subfile1", "text/plain", "baz"))
	require.NoError(t, putFile(backend, "dir2/sub1/subfile2", "text/plain", "qux"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := New(ctx, pathy.Credentials{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		Anonymous: true,
		PathStyle: true,
	})
	require.NoError(t, err)

	return c, requests
}

func TestNew(t *testing.T) {
	c := setupTestClient(t)

	assert.Equal(t, Scheme, c.Scheme())
	assert.Equal(t, "us-east-1", c.region)
	assert.NotNil(t, c.S3())
	assert.Equal(t, "s3://mybucket/a/b", c.MakeURI(pathy.MustParse("s3://mybucket/a/b")))
	require.NoError(t, c.Close())

	assert.Equal(t, []string{Scheme}, Provider.Schemes())
}

func TestClient_Buckets(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	b, err := c.CreateBucket(ctx, pathy.MustParse("s3://newbucket"))
	require.NoError(t, err)
	assert.Equal(t, "newbucket", b.Name())

	_, err = c.CreateBucket(ctx, pathy.MustParse("s3://newbucket"))
	require.ErrorIs(t, err, pathy.ErrAlreadyExists)

	names := []string{}

	for b, err := range c.ListBuckets(ctx, nil) {
		require.NoError(t, err)

		names = append(names, b.Name())
	}

	assert.ElementsMatch(t, []string{"mybucket", "newbucket"}, names)

	buckets, err := pathy.Collect(c.ListBuckets(ctx, &pathy.ListBucketsOptions{Prefix: "new"}))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "newbucket", buckets[0].Name())

	raw, ok := buckets[0].Raw().(*types.Bucket)
	require.True(t, ok)
	assert.Equal(t, "newbucket", aws.ToString(raw.Name))

	require.NoError(t, c.DeleteBucket(ctx, pathy.MustParse("s3://newbucket")))
	require.ErrorIs(t, c.DeleteBucket(ctx, pathy.MustParse("s3://newbucket")), pathy.ErrNotFound)

	_, err = c.GetBucket(ctx, pathy.MustParse("s3://newbucket"))
	require.ErrorIs(t, err, pathy.ErrNotFound)

	b, err = c.LookupBucket(ctx, pathy.MustParse("s3://newbucket"))
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = c.LookupBucket(ctx, pathy.MustParse("s3://mybucket"))
	require.NoError(t, err)
	require.NotNil(t, b)

	ok, err = b.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Exists(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	// a directory holding nothing but its marker object
	putMarker(t, c, "s3://mybucket/emptydir")

	testdata := []struct {
		path     string
		expected bool
	}{
		{"s3://", true},
		{"s3://mybucket", true},
		{"s3://nobucket", false},
		{"s3://mybucket/file1", true},
		{"s3://mybucket/dir1", true},
		{"s3://mybucket/dir2/sub1", true},
		{"s3://mybucket/dir", false},
		{"s3://mybucket/emptydir", true},
		{"s3://mybucket/nope", false},
		{"s3://nobucket/file1", false},
	}

	for _, d := range testdata {
		t.Run(d.path, func(t *testing.T) {
			ok, err := c.Exists(ctx, pathy.MustParse(d.path))
			require.NoError(t, err)
			assert.Equal(t, d.expected, ok)
		})
	}
}

func TestPathy_RmdirMarkers(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	reg := pathy.NewRegistry()
	reg.SetClient(Scheme, c)
	t.Cleanup(func() { _ = reg.Close() })

	bucket, err := reg.New("s3://markerbucket")
	require.NoError(t, err)
	require.NoError(t, bucket.Mkdir(ctx, nil))

	putMarker(t, c, "s3://markerbucket/emptydir")
	putMarker(t, c, "s3://markerbucket/dir")
	require.NoError(t, bucket.Join("dir/file").WriteText(ctx, "x"))

	assert.Empty(t, blobNames(t, c, "s3://markerbucket/emptydir/", nil))
	assert.Equal(t, []string{"emptydir/"},
		blobNames(t, c, "s3://markerbucket/emptydir/", &pathy.ListBlobsOptions{Markers: true}))

	emptydir := bucket.Join("emptydir")

	ok, err := emptydir.IsDir(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, emptydir.Rmdir(ctx))

	ok, err = emptydir.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// S3 refuses to delete a bucket that still holds markers
	require.NoError(t, bucket.Rmdir(ctx))

	ok, err = bucket.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func putMarker(t *testing.T, c *Client, p string) {
	t.Helper()

	ctx := context.Background()
	pp := pathy.MustParse(p)

	b, err := c.LookupBucket(ctx, pp)
	require.NoError(t, err)
	require.NotNil(t, b)

	w, err := b.NewWriter(ctx, pp.Key+pathy.Sep, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func blobNames(t *testing.T, c *Client, p string, opts *pathy.ListBlobsOptions) []string {
	t.Helper()

	blobs, err := pathy.Collect(c.ListBlobs(context.Background(), pathy.MustParse(p), opts))
	require.NoError(t, err)

	names := make([]string, len(blobs))
	for i, b := range blobs {
		names[i] = b.Name
	}

	return names
}

func TestClient_ListBlobs(t *testing.T) {
	c := setupTestClient(t)

	all := []string{
		"dir1/file1", "dir1/file2",
		"dir2/file3", "dir2/file4",
		"dir2/sub1/subfile1", "dir2/sub1/subfile2",
		"file1", "file2", "file3",
	}

	assert.Equal(t, all, blobNames(t, c, "s3://mybucket", nil))
	assert.Equal(t, all, blobNames(t, c, "s3://mybucket", &pathy.ListBlobsOptions{PageSize: 2}))

	assert.Equal(t, []string{"dir2/file3", "dir2/file4", "dir2/sub1/subfile1", "dir2/sub1/subfile2"},
		blobNames(t, c, "s3://mybucket/dir2/", nil))

	assert.Equal(t, []string{"dir2/file3", "dir2/file4"},
		blobNames(t, c, "s3://mybucket", &pathy.ListBlobsOptions{Prefix: "dir2/", Delimiter: "/"}))

	assert.Empty(t, blobNames(t, c, "s3://nobucket", nil))

	blobs, err := pathy.Collect(c.ListBlobs(context.Background(), pathy.MustParse("s3://mybucket/file1"), nil))
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, int64(5), blobs[0].Size)
	assert.NotZero(t, blobs[0].Updated)
}

func TestClient_ScanDir(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	entries, err := pathy.Collect(c.ScanDir(pathy.MustParse("s3://mybucket"), nil).Entries(ctx))
	require.NoError(t, err)

	got := map[string]bool{}
	for _, e := range entries {
		got[e.Name] = e.IsDir
	}

	assert.Equal(t, map[string]bool{
		"dir1": true, "dir2": true,
		"file1": false, "file2": false, "file3": false,
	}, got)

	entries, err = pathy.Collect(c.ScanDir(pathy.MustParse("s3://mybucket/dir2"), nil).Entries(ctx))
	require.NoError(t, err)

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"file3", "file4", "sub1"}, names)

	entries, err = pathy.Collect(c.ScanDir(pathy.MustParse("s3://"), nil).Entries(ctx))
	require.NoError(t, err)
	assert.Equal(t, []pathy.BucketEntry{pathy.DirEntry("mybucket", nil)}, entries)
}

func readAll(t *testing.T, b pathy.Bucket, name string) string {
	t.Helper()

	r, err := b.NewReader(context.Background(), name)
	require.NoError(t, err)

	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(data)
}

func TestBucket_Blobs(t *testing.T) {
	ctx := context.Background()
	c, requests := setupCountingClient(t)

	b, err := c.GetBucket(ctx, pathy.MustParse("s3://mybucket"))
	require.NoError(t, err)

	blob, err := b.GetBlob(ctx, "file2")
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, "file2", blob.Name)
	assert.Equal(t, "application/json", blob.ContentType)
	assert.Equal(t, int64(26), blob.Size)
	assert.Same(t, b, blob.Bucket)

	blob, err = b.GetBlob(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, blob)

	_, err = b.NewReader(ctx, "nope")
	require.ErrorIs(t, err, pathy.ErrNotFound)

	w, err := b.NewWriter(ctx, "new/file.txt", &pathy.WriterOptions{ContentType: "text/csv"})
	require.NoError(t, err)

	_, err = io.WriteString(w, "a,b\n1,2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	require.Error(t, err)

	assert.Equal(t, "a,b\n1,2\n", readAll(t, b, "new/file.txt"))

	blob, err = b.GetBlob(ctx, "new/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", blob.ContentType)

	copied, err := b.CopyBlob(ctx, blob, b, "copied/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "copied/file.txt", copied.Name)
	assert.Equal(t, "a,b\n1,2\n", readAll(t, b, "copied/file.txt"))

	require.NoError(t, b.DeleteBlob(ctx, copied))

	blob, err = b.GetBlob(ctx, "copied/file.txt")
	require.NoError(t, err)
	assert.Nil(t, blob)

	blobs, err := pathy.Collect(c.ListBlobs(ctx, pathy.MustParse("s3://mybucket/dir2"), nil))
	require.NoError(t, err)
	require.Len(t, blobs, 4)

	require.NoError(t, b.DeleteBlobs(ctx, blobs))

	// an empty batch makes no requests
	before := requests.Load()

	require.NoError(t, b.DeleteBlobs(ctx, nil))
	require.NoError(t, b.DeleteBlobs(ctx, []*pathy.Blob{}))
	assert.Equal(t, before, requests.Load())

	ok, err := c.Exists(ctx, pathy.MustParse("s3://mybucket/dir2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPageEntries(t *testing.T) {
	page := &s3.ListObjectsV2Output{
		CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("a/")}, {Prefix: aws.String("c/")}},
		Contents: []types.Object{
			{Key: aws.String("b"), Size: aws.Int64(1)},
			{Key: aws.String("d"), Size: aws.Int64(2)},
		},
	}

	entries := pageEntries(page)
	require.Len(t, entries, 4)

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"a/", "b", "c/", "d"}, names)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, int64(2), entries[3].Stat.Size)
}

func TestCopySource(t *testing.T) {
	assert.Equal(t, "bucket/dir/file.txt", copySource("bucket", "dir/file.txt"))
	assert.Equal(t, "bucket/dir/my%20file", copySource("bucket", "dir/my file"))
}

func TestToError(t *testing.T) {
	require.NoError(t, toError("op", "p", nil))

	testdata := []struct {
		code string
		kind error
	}{
		{"NoSuchKey", pathy.ErrNotFound},
		{"NoSuchBucket", pathy.ErrNotFound},
		{"NotFound", pathy.ErrNotFound},
		{"BucketAlreadyExists", pathy.ErrAlreadyExists},
		{"BucketAlreadyOwnedByYou", pathy.ErrAlreadyExists},
		{"InvalidBucketName", pathy.ErrInvalidName},
		{"AccessDenied", pathy.ErrBackend},
	}

	for _, d := range testdata {
		native := &smithy.GenericAPIError{Code: d.code, Message: "msg"}
		err := toError("op", "p", native)
		require.ErrorIs(t, err, d.kind, d.code)

		var ae smithy.APIError

		require.ErrorAs(t, err, &ae)
		assert.Equal(t, d.code, ae.ErrorCode())
	}

	require.ErrorIs(t, toError("op", "p", &types.NoSuchKey{}), pathy.ErrNotFound)
}
