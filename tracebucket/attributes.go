package tracebucket

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const (
	schemeKey = attribute.Key("bucket.scheme")
	typeKey   = attribute.Key("bucket.client_type")
	bucketKey = attribute.Key("bucket.name")
	uriKey    = attribute.Key("bucket.uri")
	keyKey    = attribute.Key("blob.key")
	prefixKey = attribute.Key("list.prefix")

	countKey   = attribute.Key("list.count")
	sizeKey    = attribute.Key("blob.size")
	modTimeKey = attribute.Key("blob.modtime")
	targetKey  = attribute.Key("blob.target")

	bytesReadKey    = attribute.Key("blob.bytes_read")
	bytesWrittenKey = attribute.Key("blob.bytes_written")
)

// The scheme of the bucket client being operated on.
//
// Type: string
// Required: Yes
// Examples: "s3", "gs", "azure"
func Scheme(name string) attribute.KeyValue {
	return schemeKey.String(name)
}

// The Go type of the underlying bucket client.
//
// Type: string
// Required: No
// Examples: "*s3bucket.Client"
func ClientType(name string) attribute.KeyValue {
	return typeKey.String(name)
}

// The bucket (or container) being operated on.
//
// Type: string
// Required: No
// Examples: "my-bucket"
func Bucket(name string) attribute.KeyValue {
	return bucketKey.String(name)
}

// The URI of the path being operated on.
//
// Type: string
// Required: No
// Examples: "s3://my-bucket/dir/file.txt"
func URI(uri string) attribute.KeyValue {
	return uriKey.String(uri)
}

// The key of the blob being operated on.
//
// Type: string
// Required: No
// Examples: "dir/file.txt"
func Key(key string) attribute.KeyValue {
	return keyKey.String(key)
}

// The prefix used to filter a listing.
//
// Type: string
// Required: No
// Examples: "dir/"
func Prefix(prefix string) attribute.KeyValue {
	return prefixKey.String(prefix)
}

// The number of results produced by a listing, up to the point the consumer
// stopped.
//
// Type: int
// Required: No
// Examples: 3, 0
func Count(n int) attribute.KeyValue {
	return countKey.Int(n)
}

// The size of a blob.
//
// Type: int64
// Required: No
// Examples: 1024, 0
func BlobSize(n int64) attribute.KeyValue {
	return sizeKey.Int64(n)
}

// The modification time of a blob.
//
// Type: time.Time
// Required: No
// Examples: "2021-08-21T11:10:00Z"
func BlobModTime(t time.Time) attribute.KeyValue {
	return modTimeKey.String(t.Format(time.RFC3339))
}

// The destination of a copy, as bucket/key.
//
// Type: string
// Required: No
// Examples: "other-bucket/dir/file.txt"
func Target(target string) attribute.KeyValue {
	return targetKey.String(target)
}

// The number of bytes read from a blob.
//
// Type: int64
// Required: No
func BytesRead(n int64) attribute.KeyValue {
	return bytesReadKey.Int64(n)
}

// The number of bytes written to a blob.
//
// Type: int64
// Required: No
func BytesWritten(n int64) attribute.KeyValue {
	return bytesWrittenKey.Int64(n)
}
