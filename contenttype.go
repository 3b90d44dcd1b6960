package pathy

import (
	"io/fs"
	"mime"
	"path"
	"sync"

	"github.com/hairyhenderson/go-pathy/internal"
)

// common types we want to be able to handle which can be missing by default
//
//nolint:gochecknoglobals
var (
	extraMimeTypes = map[string]string{
		".yml":  "application/yaml",
		".yaml": "application/yaml",
		".csv":  "text/csv",
		".toml": "application/toml",
		".env":  "application/x-env",
		".txt":  "text/plain",
	}
	extraMimeInit sync.Once
)

// ContentType returns the MIME content type for the given fs.FileInfo. When
// the blob carries a content type (see Blob.FileInfo), that is used, otherwise
// the type is guessed from the name's extension with TypeByKey.
func ContentType(fi fs.FileInfo) string {
	if cf, ok := fi.(internal.ContentTypeFileInfo); ok && cf.ContentType() != "" {
		return cf.ContentType()
	}

	return TypeByKey(fi.Name())
}

// TypeByKey guesses a blob's content type from the extension of its key. See
// mime.TypeByExtension for how extensions are looked up. The result is empty
// when the extension is unknown.
//
// The returned value may have parameters (e.g. "text/plain; charset=utf-8")
// which can be parsed with mime.ParseMediaType.
func TypeByKey(key string) string {
	extraMimeInit.Do(func() {
		for k, v := range extraMimeTypes {
			_ = mime.AddExtensionType(k, v)
		}
	})

	return mime.TypeByExtension(path.Ext(key))
}
