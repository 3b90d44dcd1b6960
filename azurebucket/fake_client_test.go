package azurebucket

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

// fakeAPI is an in-memory Blob Storage account
type fakeAPI struct {
	containers map[string]map[string]fakeBlob
	mu         sync.Mutex

	// calls counts every API request, fetches counts listing pages served
	calls   int
	fetches int
	copies  int
}

func (f *fakeAPI) call() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
}

type fakeBlob struct {
	modified    time.Time
	contentType string
	data        []byte
}

var _ api = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{containers: map[string]map[string]fakeBlob{}}
}

func (f *fakeAPI) put(containerName, name, contentType, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.containers[containerName] == nil {
		f.containers[containerName] = map[string]fakeBlob{}
	}

	f.containers[containerName][name] = fakeBlob{
		data:        []byte(content),
		contentType: contentType,
		modified:    time.Unix(1700000000, 0),
	}
}

func responseError(code bloberror.Code, status int) error {
	return &azcore.ResponseError{ErrorCode: string(code), StatusCode: status}
}

// pagerOf serves pre-computed pages, linked by their index as the marker
func pagerOf[T any](f *fakeAPI, pages []T, next func(T) *string) *runtime.Pager[T] {
	return runtime.NewPager(runtime.PagingHandler[T]{
		More: func(page T) bool {
			return next(page) != nil
		},
		Fetcher: func(_ context.Context, cur *T) (T, error) {
			f.mu.Lock()
			f.fetches++
			f.mu.Unlock()

			i := 0
			if cur != nil {
				i, _ = strconv.Atoi(*next(*cur))
			}

			return pages[i], nil
		},
	})
}

// chunk splits n items into [start, end) ranges of at most size items. There
// is always at least one (possibly empty) range.
func chunk(n int, size *int32) [][2]int {
	per := 5000
	if size != nil && *size > 0 {
		per = int(*size)
	}

	out := [][2]int{}
	for start := 0; start < n; start += per {
		out = append(out, [2]int{start, min(start+per, n)})
	}

	if len(out) == 0 {
		out = append(out, [2]int{0, 0})
	}

	return out
}

func marker(i, total int) *string {
	if i+1 >= total {
		return nil
	}

	return to.Ptr(strconv.Itoa(i + 1))
}

func (f *fakeAPI) NewListContainersPager(o *azblob.ListContainersOptions) *runtime.Pager[azblob.ListContainersResponse] {
	f.call()

	f.mu.Lock()

	names := []string{}

	for name := range f.containers {
		if o != nil && o.Prefix != nil && !strings.HasPrefix(name, *o.Prefix) {
			continue
		}

		names = append(names, name)
	}

	f.mu.Unlock()

	slices.Sort(names)

	var size *int32
	if o != nil {
		size = o.MaxResults
	}

	ranges := chunk(len(names), size)
	pages := make([]azblob.ListContainersResponse, len(ranges))

	for i, r := range ranges {
		items := []*service.ContainerItem{}
		for _, name := range names[r[0]:r[1]] {
			items = append(items, &service.ContainerItem{Name: to.Ptr(name)})
		}

		pages[i].ContainerItems = items
		pages[i].NextMarker = marker(i, len(ranges))
	}

	return pagerOf(f, pages, func(p azblob.ListContainersResponse) *string { return p.NextMarker })
}

func (f *fakeAPI) CreateContainer(_ context.Context, containerName string, _ *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error) {
	f.call()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.containers[containerName]; ok {
		return azblob.CreateContainerResponse{}, responseError(bloberror.ContainerAlreadyExists, http.StatusConflict)
	}

	if containerName != strings.ToLower(containerName) {
		return azblob.CreateContainerResponse{}, responseError(bloberror.InvalidResourceName, http.StatusBadRequest)
	}

	f.containers[containerName] = map[string]fakeBlob{}

	return azblob.CreateContainerResponse{}, nil
}

func (f *fakeAPI) DeleteContainer(_ context.Context, containerName string, _ *azblob.DeleteContainerOptions) (azblob.DeleteContainerResponse, error) {
	f.call()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.containers[containerName]; !ok {
		return azblob.DeleteContainerResponse{}, responseError(bloberror.ContainerNotFound, http.StatusNotFound)
	}

	delete(f.containers, containerName)

	return azblob.DeleteContainerResponse{}, nil
}

func (f *fakeAPI) GetContainerProperties(_ context.Context, containerName string) (container.GetPropertiesResponse, error) {
	f.call()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.containers[containerName]; !ok {
		// HEAD requests return no error code
		return container.GetPropertiesResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}

	return container.GetPropertiesResponse{}, nil
}

func (f *fakeAPI) get(containerName, name string) (fakeBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[containerName]
	if !ok {
		return fakeBlob{}, responseError(bloberror.ContainerNotFound, http.StatusNotFound)
	}

	b, ok := c[name]
	if !ok {
		return fakeBlob{}, responseError(bloberror.BlobNotFound, http.StatusNotFound)
	}

	return b, nil
}

func (f *fakeAPI) GetBlobProperties(_ context.Context, containerName, name string) (blob.GetPropertiesResponse, error) {
	f.call()

	b, err := f.get(containerName, name)
	if err != nil {
		return blob.GetPropertiesResponse{}, err
	}

	return blob.GetPropertiesResponse{
		ContentLength: to.Ptr(int64(len(b.data))),
		ContentType:   to.Ptr(b.contentType),
		LastModified:  to.Ptr(b.modified),
	}, nil
}

// sortedBlobs returns the names of the blobs in the container starting with
// prefix
func (f *fakeAPI) sortedBlobs(containerName string, prefix *string) (map[string]fakeBlob, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.containers[containerName]

	names := []string{}

	for name := range c {
		if prefix == nil || strings.HasPrefix(name, *prefix) {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return c, names
}

func (b fakeBlob) item(name string) *container.BlobItem {
	return &container.BlobItem{
		Name: to.Ptr(name),
		Properties: &container.BlobProperties{
			ContentLength: to.Ptr(int64(len(b.data))),
			ContentType:   to.Ptr(b.contentType),
			LastModified:  to.Ptr(b.modified),
		},
	}
}

func (f *fakeAPI) NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse] {
	f.call()

	if o == nil {
		o = &azblob.ListBlobsFlatOptions{}
	}

	c, names := f.sortedBlobs(containerName, o.Prefix)
	ranges := chunk(len(names), o.MaxResults)
	pages := make([]azblob.ListBlobsFlatResponse, len(ranges))

	for i, r := range ranges {
		seg := &container.BlobFlatListSegment{}
		for _, name := range names[r[0]:r[1]] {
			seg.BlobItems = append(seg.BlobItems, c[name].item(name))
		}

		pages[i].Segment = seg
		pages[i].NextMarker = marker(i, len(ranges))
	}

	return pagerOf(f, pages, func(p azblob.ListBlobsFlatResponse) *string { return p.NextMarker })
}

func (f *fakeAPI) NewListBlobsHierarchyPager(containerName, delimiter string, o *container.ListBlobsHierarchyOptions) *runtime.Pager[container.ListBlobsHierarchyResponse] {
	f.call()

	if o == nil {
		o = &container.ListBlobsHierarchyOptions{}
	}

	prefix := value(o.Prefix)
	c, names := f.sortedBlobs(containerName, o.Prefix)

	type entry struct {
		name   string
		prefix bool
	}

	entries := []entry{}

	for _, name := range names {
		rest := name[len(prefix):]
		if i := strings.Index(rest, delimiter); i >= 0 {
			e := entry{name: prefix + rest[:i+len(delimiter)], prefix: true}
			if !slices.Contains(entries, e) {
				entries = append(entries, e)
			}

			continue
		}

		entries = append(entries, entry{name: name})
	}

	ranges := chunk(len(entries), o.MaxResults)
	pages := make([]container.ListBlobsHierarchyResponse, len(ranges))

	for i, r := range ranges {
		seg := &container.BlobHierarchyListSegment{}

		for _, e := range entries[r[0]:r[1]] {
			if e.prefix {
				seg.BlobPrefixes = append(seg.BlobPrefixes, &container.BlobPrefix{Name: to.Ptr(e.name)})
			} else {
				seg.BlobItems = append(seg.BlobItems, c[e.name].item(e.name))
			}
		}

		pages[i].Segment = seg
		pages[i].NextMarker = marker(i, len(ranges))
	}

	return pagerOf(f, pages, func(p container.ListBlobsHierarchyResponse) *string { return p.NextMarker })
}

func (f *fakeAPI) CopyBlob(_ context.Context, srcContainer, srcBlob, dstContainer, dstBlob string) error {
	f.call()

	b, err := f.get(srcContainer, srcBlob)
	if err != nil {
		return err
	}

	if _, err := f.GetContainerProperties(context.Background(), dstContainer); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.copies++
	f.containers[dstContainer][dstBlob] = b

	return nil
}

func (f *fakeAPI) DeleteBlob(_ context.Context, containerName, name string, _ *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error) {
	f.call()

	if _, err := f.get(containerName, name); err != nil {
		return azblob.DeleteBlobResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.containers[containerName], name)

	return azblob.DeleteBlobResponse{}, nil
}

func (f *fakeAPI) DownloadStream(_ context.Context, containerName, name string, _ *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
	f.call()

	b, err := f.get(containerName, name)
	if err != nil {
		return azblob.DownloadStreamResponse{}, err
	}

	resp := azblob.DownloadStreamResponse{}
	resp.Body = io.NopCloser(bytes.NewReader(b.data))

	return resp, nil
}

func (f *fakeAPI) UploadStream(_ context.Context, containerName, name string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error) {
	f.call()

	data, err := io.ReadAll(body)
	if err != nil {
		return azblob.UploadStreamResponse{}, err
	}

	if _, err := f.GetContainerProperties(context.Background(), containerName); err != nil {
		return azblob.UploadStreamResponse{}, responseError(bloberror.ContainerNotFound, http.StatusNotFound)
	}

	contentType := "application/octet-stream"
	if o != nil && o.HTTPHeaders != nil && o.HTTPHeaders.BlobContentType != nil {
		contentType = *o.HTTPHeaders.BlobContentType
	}

	f.put(containerName, name, contentType, string(data))

	return azblob.UploadStreamResponse{}, nil
}
