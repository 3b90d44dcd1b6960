// Package env reads configuration values from the environment.
package env

import (
	"io/fs"
	"os"
	"strings"
)

// GetenvFS retrieves the value of the environment variable named by the key.
// If the variable is unset, but the same variable ending in `_FILE` is set, the
// referenced file (resolved from the given filesystem) will be read into the
// value. Otherwise the provided default (or an empty string) is returned.
func GetenvFS(fsys fs.FS, key string, def ...string) string {
	val, ok := LookupFS(fsys, key)
	if (!ok || val == "") && len(def) > 0 {
		return def[0]
	}

	return val
}

// LookupFS is like GetenvFS, but reports whether a value was found (in either
// the variable or its `_FILE` counterpart) instead of applying a default. A
// variable explicitly set to the empty string counts as found.
func LookupFS(fsys fs.FS, key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}

	p := os.Getenv(key + "_FILE")
	if p == "" {
		return "", false
	}

	b, err := fs.ReadFile(fsys, strings.TrimPrefix(p, "/"))
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(string(b)), true
}

// BoolFS reports whether the variable is set to "true" (or "1"), with the same
// `_FILE` handling as GetenvFS.
func BoolFS(fsys fs.FS, key string) bool {
	switch strings.ToLower(GetenvFS(fsys, key)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
