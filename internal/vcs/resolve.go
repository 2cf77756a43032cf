package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/goplus/llpkg/recipe"
)

// Resolve returns the source coordinate of r with its "auto" URL and
// revision replaced.
//
// Without a recipe checkout, an automatic URL is the package URL of the
// recipe identity and an automatic revision is the remote HEAD of the
// resolved URL. When recipeDir names a git checkout of the package, its
// origin remote and checked-out commit are used instead.
func (g *Git) Resolve(ctx context.Context, r *recipe.Recipe, recipeDir string) (recipe.SourceCoordinate, error) {
	src := r.Source
	if src.URL == recipe.Auto {
		url, err := g.autoURL(ctx, r, recipeDir)
		if err != nil {
			return src, err
		}
		src.URL = url
	}
	if src.Revision == recipe.Auto {
		var (
			rev string
			err error
		)
		if recipeDir != "" {
			rev, err = g.output(ctx, recipeDir, "rev-parse", "HEAD")
		} else {
			rev, err = g.Latest(ctx, remoteURL(src.URL, src.Username))
		}
		if err != nil {
			return src, fmt.Errorf("resolve source revision: %w", err)
		}
		src.Revision = strings.TrimSpace(rev)
	}
	return src, nil
}

func (g *Git) autoURL(ctx context.Context, r *recipe.Recipe, recipeDir string) (string, error) {
	if recipeDir == "" {
		if r.Identity.URL == "" {
			return "", fmt.Errorf("resolve source url: recipe %s declares no url", r.Identity)
		}
		return r.Identity.URL, nil
	}
	out, err := g.output(ctx, recipeDir, "config", "--get", "remote.origin.url")
	if err != nil {
		return "", fmt.Errorf("resolve source url: %w", err)
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return "", fmt.Errorf("resolve source url: %s has no origin remote", recipeDir)
	}
	return url, nil
}
