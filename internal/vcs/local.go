package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/llpkg/recipe"
)

// Local copies an existing source tree instead of fetching it. The
// coordinate's URL and revision are ignored.
type Local struct {
	Dir string
}

var _ Fetcher = Local{}

// Fetch replaces root/<subfolder> with a copy of l.Dir. Trees holding
// symlinks are rejected by os.CopyFS.
func (l Local) Fetch(ctx context.Context, src recipe.SourceCoordinate, root string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fi, err := os.Stat(l.Dir)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("source %s is not a directory", l.Dir)
	}
	dir := filepath.Join(root, src.Subfolder)
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.CopyFS(dir, os.DirFS(l.Dir)); err != nil {
		return "", fmt.Errorf("copy %s: %w", l.Dir, err)
	}
	return dir, nil
}
