package gcsbucket

import (
	"errors"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/hairyhenderson/go-pathy"
	"google.golang.org/api/googleapi"
)

func toError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	kind := pathy.ErrBackend

	var gerr *googleapi.Error

	switch {
	case errors.Is(err, storage.ErrBucketNotExist), errors.Is(err, storage.ErrObjectNotExist):
		kind = pathy.ErrNotFound
	case errors.As(err, &gerr):
		switch gerr.Code {
		case http.StatusNotFound:
			kind = pathy.ErrNotFound
		case http.StatusConflict:
			kind = pathy.ErrAlreadyExists
		case http.StatusBadRequest:
			if hasReason(gerr, "invalid") {
				kind = pathy.ErrInvalidName
			}
		}
	}

	return pathy.NewError(op, path, kind, err)
}

// hasReason reports whether any of the error's items carries the reason. GCS
// rejects malformed bucket and object names with the reason "invalid".
func hasReason(gerr *googleapi.Error, reason string) bool {
	for _, item := range gerr.Errors {
		if item.Reason == reason {
			return true
		}
	}

	return false
}
