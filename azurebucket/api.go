package azurebucket

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// api is the subset of the Blob Storage service API used by Client. The
// first group of methods is satisfied by *azblob.Client directly.
type api interface {
	NewListContainersPager(o *azblob.ListContainersOptions) *runtime.Pager[azblob.ListContainersResponse]
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	DeleteContainer(ctx context.Context, containerName string, o *azblob.DeleteContainerOptions) (azblob.DeleteContainerResponse, error)
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)

	NewListBlobsHierarchyPager(containerName, delimiter string, o *container.ListBlobsHierarchyOptions) *runtime.Pager[container.ListBlobsHierarchyResponse]
	GetContainerProperties(ctx context.Context, containerName string) (container.GetPropertiesResponse, error)
	GetBlobProperties(ctx context.Context, containerName, blobName string) (blob.GetPropertiesResponse, error)
	CopyBlob(ctx context.Context, srcContainer, srcBlob, dstContainer, dstBlob string) error
}

// copyPollInterval is how often a pending copy's status is checked
//
//nolint:gochecknoglobals
var copyPollInterval = 500 * time.Millisecond

// nativeAPI adds the container and blob-level calls to an *azblob.Client
type nativeAPI struct {
	*azblob.Client
}

var _ api = nativeAPI{}

func (n nativeAPI) container(name string) *container.Client {
	return n.ServiceClient().NewContainerClient(name)
}

func (n nativeAPI) NewListBlobsHierarchyPager(containerName, delimiter string, o *container.ListBlobsHierarchyOptions) *runtime.Pager[container.ListBlobsHierarchyResponse] {
	return n.container(containerName).NewListBlobsHierarchyPager(delimiter, o)
}

func (n nativeAPI) GetContainerProperties(ctx context.Context, containerName string) (container.GetPropertiesResponse, error) {
	return n.container(containerName).GetProperties(ctx, nil)
}

func (n nativeAPI) GetBlobProperties(ctx context.Context, containerName, blobName string) (blob.GetPropertiesResponse, error) {
	return n.container(containerName).NewBlobClient(blobName).GetProperties(ctx, nil)
}

// CopyBlob starts a server-side copy and waits for it to finish.
func (n nativeAPI) CopyBlob(ctx context.Context, srcContainer, srcBlob, dstContainer, dstBlob string) error {
	src := n.container(srcContainer).NewBlobClient(srcBlob)
	dst := n.container(dstContainer).NewBlobClient(dstBlob)

	resp, err := dst.StartCopyFromURL(ctx, src.URL(), nil)
	if err != nil {
		return err
	}

	status := resp.CopyStatus
	for status != nil && *status == blob.CopyStatusTypePending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(copyPollInterval):
		}

		props, err := dst.GetProperties(ctx, nil)
		if err != nil {
			return err
		}

		status = props.CopyStatus
	}

	if status != nil && *status != blob.CopyStatusTypeSuccess {
		return fmt.Errorf("copy to %s/%s ended with status %q", dstContainer, dstBlob, *status)
	}

	return nil
}
