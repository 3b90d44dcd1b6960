package azurebucket

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/hairyhenderson/go-pathy"
)

func toError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	kind := pathy.ErrBackend

	switch {
	case bloberror.HasCode(err, bloberror.ContainerNotFound, bloberror.BlobNotFound,
		bloberror.ResourceNotFound):
		kind = pathy.ErrNotFound
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists, bloberror.BlobAlreadyExists,
		bloberror.ResourceAlreadyExists):
		kind = pathy.ErrAlreadyExists
	case bloberror.HasCode(err, bloberror.InvalidResourceName, bloberror.OutOfRangeInput):
		kind = pathy.ErrInvalidName
	default:
		// HEAD responses carry no error body
		var re *azcore.ResponseError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			kind = pathy.ErrNotFound
		}
	}

	return pathy.NewError(op, path, kind, err)
}
