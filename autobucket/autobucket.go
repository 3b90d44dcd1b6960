// Package autobucket registers every bucket client supported by this module.
// Using this package will compile a great many dependencies into the resulting
// binary, so unless you need to support all backends, register only the
// providers you need with pathy.Registry.Register instead.
package autobucket

import (
	"io/fs"
	"sync"

	"github.com/hairyhenderson/go-pathy"
	"github.com/hairyhenderson/go-pathy/azurebucket"
	"github.com/hairyhenderson/go-pathy/cdkbucket"
	"github.com/hairyhenderson/go-pathy/gcsbucket"
	"github.com/hairyhenderson/go-pathy/s3bucket"
)

// Providers returns the providers for all supported backends.
func Providers() []pathy.ClientProvider {
	return []pathy.ClientProvider{
		azurebucket.Provider,
		cdkbucket.Provider,
		gcsbucket.Provider,
		s3bucket.Provider,
	}
}

// Register adds all supported backends to reg, and seeds each scheme's
// credentials from the environment. The optional filesystem resolves `_FILE`
// variables (see pathy.AzureCredentialsFromEnv).
func Register(reg *pathy.Registry, fsys ...fs.FS) *pathy.Registry {
	for _, p := range Providers() {
		reg.Register(p)
	}

	reg.SetCredentials(azurebucket.Scheme, pathy.AzureCredentialsFromEnv(fsys...))
	reg.SetCredentials(s3bucket.Scheme, pathy.S3CredentialsFromEnv(fsys...))
	reg.SetCredentials(gcsbucket.Scheme, pathy.GCSCredentialsFromEnv(fsys...))
	reg.SetCredentials(cdkbucket.SchemeFile, pathy.FileCredentialsFromEnv(fsys...))

	return reg
}

// Default returns pathy.DefaultRegistry, with all supported backends
// registered on first use.
func Default() *pathy.Registry {
	return registerDefault()
}

//nolint:gochecknoglobals
var registerDefault = sync.OnceValue(func() *pathy.Registry {
	return Register(pathy.DefaultRegistry())
})
