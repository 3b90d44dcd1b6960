package s3bucket

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/hairyhenderson/go-pathy"
)

// toError translates S3 errors into pathy errors, by API error code where
// there is one, and by HTTP status otherwise (HEAD responses have no body).
func toError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	kind := pathy.ErrBackend

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			kind = pathy.ErrNotFound
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			kind = pathy.ErrAlreadyExists
		case "InvalidBucketName", "KeyTooLongError":
			kind = pathy.ErrInvalidName
		}
	}

	var re interface{ HTTPStatusCode() int }
	if kind == pathy.ErrBackend && errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		kind = pathy.ErrNotFound
	}

	return pathy.NewError(op, path, kind, err)
}
