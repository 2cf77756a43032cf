// Package vcs materializes recipe sources into a workspace.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goplus/llpkg/recipe"
)

// Fetcher materializes the sources described by a coordinate below root
// and returns the source directory, root/<subfolder>.
type Fetcher interface {
	Fetch(ctx context.Context, src recipe.SourceCoordinate, root string) (string, error)
}

// Git fetches sources with the git executable.
type Git struct {
	git string
}

var _ Fetcher = (*Git)(nil)

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// NewGit creates a git fetcher.
func NewGit(opts ...GitOption) *Git {
	g := &Git{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch checks out src.Revision of src.URL into root/<subfolder>. The
// coordinate must be resolved; see Resolve.
func (g *Git) Fetch(ctx context.Context, src recipe.SourceCoordinate, root string) (string, error) {
	if !src.IsResolved() {
		return "", fmt.Errorf("source of kind %q is not resolved: url=%q revision=%q", src.Kind, src.URL, src.Revision)
	}
	dir := filepath.Join(root, src.Subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := g.Sync(ctx, remoteURL(src.URL, src.Username), src.Revision, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Sync ensures dir is a git repository checked out at ref of remote.
// ref can be a branch, a tag or a commit hash.
func (g *Git) Sync(ctx context.Context, remote, ref, dir string) error {
	if err := g.ensureInit(ctx, dir); err != nil {
		return err
	}
	if err := g.fetch(ctx, remote, dir, ref); err != nil {
		return err
	}
	return g.checkout(ctx, dir, "FETCH_HEAD")
}

// Latest returns the commit hash of the remote HEAD.
func (g *Git) Latest(ctx context.Context, remote string) (string, error) {
	output, err := g.output(ctx, "", "ls-remote", remote, "HEAD")
	if err != nil {
		return "", fmt.Errorf("get remote HEAD: %w", err)
	}
	output = strings.TrimSpace(output)
	if output == "" {
		return "", fmt.Errorf("no HEAD found in remote %s", remote)
	}
	// format: <hash>\tHEAD
	hash, _, _ := strings.Cut(output, "\t")
	return hash, nil
}

func (g *Git) ensureInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		return g.run(ctx, dir, "init", "-q")
	}
	return nil
}

func (g *Git) fetch(ctx context.Context, remote, dir, ref string) error {
	if err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (g *Git) checkout(ctx context.Context, dir, ref string) error {
	if err := g.run(ctx, dir, "checkout", "-q", "--force", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// remoteURL adds username to http(s) URLs that carry no user info.
// Other URL forms are returned unchanged.
func remoteURL(raw, username string) string {
	if username == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return raw
	}
	u.User = url.User(username)
	return u.String()
}
