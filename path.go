package pathy

import (
	"fmt"
	"path"
	"strings"
)

// Sep is the separator used to split blob keys into path segments, for every
// backend.
const Sep = "/"

// PurePath is a parsed "scheme://bucket/key" path. It performs no I/O.
//
// An empty Root denotes the list of all buckets for the scheme, and an empty
// Key denotes the root of the bucket. Key never begins or ends with Sep.
type PurePath struct {
	Scheme string
	Root   string
	Key    string
}

// Parse parses a path of the form "scheme://bucket/key". Repeated separators
// and "." segments in the key are cleaned; ".." segments are rejected.
func Parse(s string) (PurePath, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return PurePath{}, fmt.Errorf("parse %q: missing scheme", s)
	}

	if strings.ContainsAny(scheme, "/:") {
		return PurePath{}, fmt.Errorf("parse %q: invalid scheme %q", s, scheme)
	}

	root, key, _ := strings.Cut(rest, Sep)

	key, err := cleanKey(key)
	if err != nil {
		return PurePath{}, fmt.Errorf("parse %q: %w", s, err)
	}

	if root == "" && key != "" {
		return PurePath{}, fmt.Errorf("parse %q: key without bucket", s)
	}

	return PurePath{Scheme: scheme, Root: root, Key: key}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) PurePath {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return p
}

func cleanKey(key string) (string, error) {
	if key == "" {
		return "", nil
	}

	parts := strings.Split(key, Sep)
	out := parts[:0]

	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("invalid key %q: '..' not allowed", key)
		}

		out = append(out, part)
	}

	return strings.Join(out, Sep), nil
}

// String formats the path as "scheme://bucket/key". Parse(p.String()) == p for
// every valid path.
func (p PurePath) String() string {
	switch {
	case p.Root == "":
		return p.Scheme + "://"
	case p.Key == "":
		return p.Scheme + "://" + p.Root
	default:
		return p.Scheme + "://" + p.Root + Sep + p.Key
	}
}

// IsSchemeRoot reports whether the path names the set of all buckets.
func (p PurePath) IsSchemeRoot() bool {
	return p.Root == ""
}

// IsBucket reports whether the path names a bucket root.
func (p PurePath) IsBucket() bool {
	return p.Root != "" && p.Key == ""
}

// Bucket returns the path of the bucket root containing p.
func (p PurePath) Bucket() PurePath {
	return PurePath{Scheme: p.Scheme, Root: p.Root}
}

// Parts returns the bucket followed by each key segment.
func (p PurePath) Parts() []string {
	if p.Root == "" {
		return nil
	}

	parts := []string{p.Root}
	if p.Key != "" {
		parts = append(parts, strings.Split(p.Key, Sep)...)
	}

	return parts
}

// Join returns p extended by the given segments. The first segment extends
// the bucket name when p is the scheme root. ".." segments are resolved
// lexically and clamped at the bucket root, as "/.." is on a filesystem:
// "gs://b/a" joined with "../../x" is "gs://b/x".
func (p PurePath) Join(elem ...string) PurePath {
	joined := path.Join(elem...)
	if joined == "" || joined == "." {
		return p
	}

	out := p

	if out.Root == "" {
		joined = strings.TrimPrefix(path.Join(Sep, joined), Sep)
		if joined == "" {
			return p
		}

		out.Root, joined, _ = strings.Cut(joined, Sep)
	}

	out.Key = strings.TrimPrefix(path.Join(Sep, out.Key, joined), Sep)

	return out
}

// Parent returns the logical parent of p. The parent of a bucket root is the
// scheme root, and the scheme root is its own parent.
func (p PurePath) Parent() PurePath {
	switch {
	case p.Root == "":
		return p
	case p.Key == "":
		return PurePath{Scheme: p.Scheme}
	}

	dir := path.Dir(p.Key)
	if dir == "." {
		dir = ""
	}

	return PurePath{Scheme: p.Scheme, Root: p.Root, Key: dir}
}

// Parents returns every ancestor of p, nearest first, ending with the scheme
// root.
func (p PurePath) Parents() []PurePath {
	var out []PurePath

	for cur := p; !cur.IsSchemeRoot(); {
		cur = cur.Parent()
		out = append(out, cur)
	}

	return out
}

// Name returns the final path component: the last key segment, or the bucket
// name for a bucket root.
func (p PurePath) Name() string {
	if p.Key == "" {
		return p.Root
	}

	return path.Base(p.Key)
}

// Suffix returns the extension of the final component, including the dot.
func (p PurePath) Suffix() string {
	name := p.Name()

	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}

	return name[i:]
}

// Stem returns the final component without its suffix.
func (p PurePath) Stem() string {
	return strings.TrimSuffix(p.Name(), p.Suffix())
}

// WithName returns a copy of p with the final component replaced.
func (p PurePath) WithName(name string) (PurePath, error) {
	if p.Key == "" {
		return PurePath{}, fmt.Errorf("%s has an empty key name", p)
	}

	if name == "" || strings.Contains(name, Sep) || name == "." || name == ".." {
		return PurePath{}, fmt.Errorf("invalid name %q", name)
	}

	return p.Parent().Join(name), nil
}

// WithSuffix returns a copy of p with the suffix of the final component
// replaced. An empty suffix removes it.
func (p PurePath) WithSuffix(suffix string) (PurePath, error) {
	if suffix != "" && (!strings.HasPrefix(suffix, ".") || suffix == "." || strings.Contains(suffix, Sep)) {
		return PurePath{}, fmt.Errorf("invalid suffix %q", suffix)
	}

	return p.WithName(p.Stem() + suffix)
}

// RelativeTo returns the key of p relative to other, which must be p itself or
// one of its ancestors.
func (p PurePath) RelativeTo(other PurePath) (string, error) {
	if p.Scheme != other.Scheme {
		return "", fmt.Errorf("%s is not relative to %s", p, other)
	}

	if other.Root == "" {
		return strings.Join(p.Parts(), Sep), nil
	}

	if p.Root != other.Root {
		return "", fmt.Errorf("%s is not relative to %s", p, other)
	}

	switch {
	case other.Key == "":
		return p.Key, nil
	case p.Key == other.Key:
		return "", nil
	case strings.HasPrefix(p.Key, other.Key+Sep):
		return strings.TrimPrefix(p.Key, other.Key+Sep), nil
	}

	return "", fmt.Errorf("%s is not relative to %s", p, other)
}

// Match reports whether p matches the glob pattern, compared segment by
// segment from the right (like pathlib's PurePath.match). A pattern with a
// scheme must match the whole path.
func (p PurePath) Match(pattern string) (bool, error) {
	parts := p.Parts()

	if scheme, rest, ok := strings.Cut(pattern, "://"); ok {
		if scheme != p.Scheme {
			return false, nil
		}

		pats := splitPattern(rest)
		if len(pats) != len(parts) {
			return false, nil
		}

		return matchSegments(pats, parts)
	}

	pats := splitPattern(pattern)
	if len(pats) == 0 {
		return false, fmt.Errorf("empty pattern")
	}

	if len(pats) > len(parts) {
		return false, nil
	}

	return matchSegments(pats, parts[len(parts)-len(pats):])
}

func splitPattern(pattern string) []string {
	pattern = strings.Trim(pattern, Sep)
	if pattern == "" {
		return nil
	}

	return strings.Split(pattern, Sep)
}

func matchSegments(pats, parts []string) (bool, error) {
	for i, pat := range pats {
		ok, err := path.Match(pat, parts[i])
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}
