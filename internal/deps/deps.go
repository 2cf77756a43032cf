// Package deps resolves build requirements to installed packages.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/llpkg/pkgs/buildsys"
	"github.com/goplus/llpkg/pkgs/mod/module"
	"github.com/goplus/llpkg/pkgs/mod/versions"
	"github.com/goplus/llpkg/recipe"
)

// Resolver finds an installed package satisfying a requirement.
type Resolver interface {
	Resolve(ctx context.Context, req recipe.Requirement) (buildsys.Dependency, error)
}

// ErrNotFound is returned when no installed package satisfies a requirement.
var ErrNotFound = errors.New("no matching package")

// Store resolves requirements against a package store laid out as
// <dir>/<name>@<version>/.
type Store struct {
	dir string
}

// NewStore returns a resolver over dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Versions lists the installed versions of name, lowest first.
func (s *Store) Versions(name string) ([]module.Version, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []module.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, ok := module.ParseDir(e.Name())
		if !ok || v.Name != name {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return versions.Compare(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}

// Resolve picks the highest installed version within req.Range.
func (s *Store) Resolve(ctx context.Context, req recipe.Requirement) (buildsys.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return buildsys.Dependency{}, err
	}
	if _, err := module.EscapeName(req.Name); err != nil {
		return buildsys.Dependency{}, err
	}
	installed, err := s.Versions(req.Name)
	if err != nil {
		return buildsys.Dependency{}, err
	}
	for i := len(installed) - 1; i >= 0; i-- {
		v := installed[i]
		if !req.Range.Match(v.Version) {
			continue
		}
		dir, err := v.Dir()
		if err != nil {
			return buildsys.Dependency{}, err
		}
		return buildsys.Dependency{Name: v.Name, Version: v.Version, Root: filepath.Join(s.dir, dir)}, nil
	}
	return buildsys.Dependency{}, fmt.Errorf("%w: %s in %s", ErrNotFound, req, s.dir)
}

// Fixed resolves requirements to explicitly given install roots. The
// version of such a root is taken as-is.
type Fixed map[string]buildsys.Dependency

func (f Fixed) Resolve(ctx context.Context, req recipe.Requirement) (buildsys.Dependency, error) {
	dep, ok := f[req.Name]
	if !ok {
		return buildsys.Dependency{}, fmt.Errorf("%w: %s", ErrNotFound, req)
	}
	if dep.Version != "" && !req.Range.Match(dep.Version) {
		return buildsys.Dependency{}, fmt.Errorf("%s@%s does not satisfy %s", dep.Name, dep.Version, req)
	}
	return dep, nil
}

// Chain tries each resolver in turn and returns the first match.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, req recipe.Requirement) (buildsys.Dependency, error) {
	for _, r := range c {
		dep, err := r.Resolve(ctx, req)
		if err == nil {
			return dep, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return buildsys.Dependency{}, err
		}
	}
	return buildsys.Dependency{}, fmt.Errorf("%w: %s", ErrNotFound, req)
}

// ResolveAll resolves every requirement of r.
func ResolveAll(ctx context.Context, res Resolver, r *recipe.Recipe) ([]buildsys.Dependency, error) {
	out := make([]buildsys.Dependency, 0, len(r.BuildRequires))
	for _, req := range r.BuildRequires {
		dep, err := res.Resolve(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", req, err)
		}
		out = append(out, dep)
	}
	return out, nil
}
