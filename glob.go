package pathy

import (
	"context"
	"iter"
	"path"
	"strings"
)

// Glob yields the paths beneath p matching the relative pattern. Each segment
// of the pattern is matched with path.Match against one path segment, except
// for "**", which matches any number of directories (including none).
func (p *Pathy) Glob(ctx context.Context, pattern string) iter.Seq2[*Pathy, error] {
	segs := splitPattern(pattern)

	return func(yield func(*Pathy, error) bool) {
		if len(segs) == 0 {
			return
		}

		for _, seg := range segs {
			if _, err := path.Match(seg, ""); err != nil {
				yield(nil, NewError("glob", pattern, ErrInvalidName, err))

				return
			}
		}

		g := &globber{seen: map[PurePath]struct{}{}, yield: yield}
		g.walk(ctx, p, segs)
	}
}

// RGlob is Glob with the pattern prefixed by "**", so that it matches at any
// depth.
func (p *Pathy) RGlob(ctx context.Context, pattern string) iter.Seq2[*Pathy, error] {
	return p.Glob(ctx, "**/"+strings.TrimPrefix(pattern, Sep))
}

type globber struct {
	seen  map[PurePath]struct{}
	yield func(*Pathy, error) bool
}

// emit yields a match once; returns false when the caller stopped iterating
func (g *globber) emit(p *Pathy) bool {
	if _, ok := g.seen[p.PurePath]; ok {
		return true
	}

	g.seen[p.PurePath] = struct{}{}

	return g.yield(p, nil)
}

func (g *globber) fail(err error) bool {
	g.yield(nil, err)

	return false
}

func hasMagic(seg string) bool {
	return strings.ContainsAny(seg, "*?[")
}

func (g *globber) walk(ctx context.Context, dir *Pathy, segs []string) bool {
	if len(segs) == 0 {
		return g.emit(dir)
	}

	seg, rest := segs[0], segs[1:]

	switch {
	case seg == "**":
		if !g.walk(ctx, dir, rest) {
			return false
		}

		for entry, err := range dir.ScanDir(ctx) {
			if err != nil {
				return g.fail(err)
			}

			if entry.IsDir && !g.walk(ctx, dir.Join(entry.Name), segs) {
				return false
			}
		}
	case !hasMagic(seg):
		child := dir.Join(seg)

		if len(rest) > 0 {
			return g.walk(ctx, child, rest)
		}

		ok, err := child.Exists(ctx)
		if err != nil {
			return g.fail(err)
		}

		if ok {
			return g.emit(child)
		}
	default:
		for entry, err := range dir.ScanDir(ctx) {
			if err != nil {
				return g.fail(err)
			}

			// the pattern was validated up front
			if ok, _ := path.Match(seg, entry.Name); !ok {
				continue
			}

			child := dir.Join(entry.Name)

			if len(rest) == 0 {
				if !g.emit(child) {
					return false
				}
			} else if entry.IsDir && !g.walk(ctx, child, rest) {
				return false
			}
		}
	}

	return true
}
