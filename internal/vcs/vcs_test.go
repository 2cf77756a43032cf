package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/llpkg/recipe"
)

// gitRepo creates a repository with one commit on branch main and returns
// its directory and HEAD commit.
func gitRepo(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", append([]string{
			"-c", "user.name=test", "-c", "user.email=test@example.com",
			"-c", "commit.gpgsign=false",
		}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}
	git("init", "-q")
	git("checkout", "-q", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte("project(x)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	git("add", ".")
	git("commit", "-q", "-m", "init")
	git("remote", "add", "origin", "https://github.com/erikzenker/inotify-cpp.git")
	return dir, git("rev-parse", "HEAD")
}

func TestGitFetch(t *testing.T) {
	repo, _ := gitRepo(t)
	root := t.TempDir()

	src := recipe.SourceCoordinate{Kind: "git", URL: repo, Revision: "main", Subfolder: "inotifycpp"}
	dir, err := NewGit().Fetch(context.Background(), src, root)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if dir != filepath.Join(root, "inotifycpp") {
		t.Errorf("dir = %q", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "CMakeLists.txt")); err != nil {
		t.Errorf("checkout incomplete: %v", err)
	}

	// A second fetch into the same tree updates it in place.
	if _, err := NewGit().Fetch(context.Background(), src, root); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
}

func TestGitFetchUnresolved(t *testing.T) {
	src := recipe.SourceCoordinate{Kind: "git", URL: recipe.Auto, Revision: recipe.Auto, Subfolder: "x"}
	if _, err := NewGit().Fetch(context.Background(), src, t.TempDir()); err == nil {
		t.Fatal("Fetch of unresolved coordinate succeeded")
	}
}

func TestGitFetchBadRevision(t *testing.T) {
	repo, _ := gitRepo(t)
	src := recipe.SourceCoordinate{Kind: "git", URL: repo, Revision: "no-such-branch", Subfolder: "x"}
	if _, err := NewGit().Fetch(context.Background(), src, t.TempDir()); err == nil {
		t.Fatal("Fetch of missing revision succeeded")
	}
}

func autoRecipe(url string) *recipe.Recipe {
	return &recipe.Recipe{
		Identity: recipe.Identity{Name: "inotifycpp", Version: "1.0.0", URL: url},
		Source:   recipe.SourceCoordinate{Kind: "git", URL: recipe.Auto, Revision: recipe.Auto, Subfolder: "inotifycpp"},
	}
}

func TestResolveAutoFromCheckout(t *testing.T) {
	repo, head := gitRepo(t)
	got, err := NewGit().Resolve(context.Background(), autoRecipe("https://example.com/other.git"), repo)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.URL != "https://github.com/erikzenker/inotify-cpp.git" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Revision != head {
		t.Errorf("Revision = %q, want %q", got.Revision, head)
	}
	if !got.IsResolved() {
		t.Error("coordinate still unresolved")
	}
}

func TestResolveAutoURLFromIdentity(t *testing.T) {
	r := autoRecipe("https://github.com/erikzenker/inotify-cpp.git")
	r.Source.Revision = "v1.0.0"
	got, err := NewGit().Resolve(context.Background(), r, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.URL != "https://github.com/erikzenker/inotify-cpp.git" || got.Revision != "v1.0.0" {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestResolveIgnoresWorkingDirectory(t *testing.T) {
	unrelated, _ := gitRepo(t)
	t.Chdir(unrelated)

	r := autoRecipe("https://example.com/inotify-cpp.git")
	r.Source.Revision = "main"
	got, err := NewGit().Resolve(context.Background(), r, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.URL != "https://example.com/inotify-cpp.git" {
		t.Errorf("URL = %q, taken from the working directory", got.URL)
	}
}

func TestResolveAutoRevisionFromRemote(t *testing.T) {
	repo, head := gitRepo(t)
	got, err := NewGit().Resolve(context.Background(), autoRecipe(repo), "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.URL != repo {
		t.Errorf("URL = %q, want %q", got.URL, repo)
	}
	if got.Revision != head {
		t.Errorf("Revision = %q, want remote HEAD %q", got.Revision, head)
	}
}

func TestResolveKeepsExplicit(t *testing.T) {
	r := autoRecipe("")
	r.Source.URL = "https://example.com/x.git"
	r.Source.Revision = "v1.0.0"
	got, err := NewGit().Resolve(context.Background(), r, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != r.Source {
		t.Errorf("Resolve = %+v, want %+v", got, r.Source)
	}
}

func TestResolveAutoURLWithoutIdentityURL(t *testing.T) {
	r := autoRecipe("")
	r.Source.Revision = "v1"
	if _, err := NewGit().Resolve(context.Background(), r, ""); err == nil {
		t.Fatal("Resolve succeeded without any url")
	}
}

func TestRemoteURL(t *testing.T) {
	tests := []struct {
		raw, user, want string
	}{
		{"https://github.com/erikzenker/inotify-cpp.git", "git", "https://git@github.com/erikzenker/inotify-cpp.git"},
		{"https://me@github.com/x.git", "git", "https://me@github.com/x.git"},
		{"git@github.com:erikzenker/inotify-cpp.git", "git", "git@github.com:erikzenker/inotify-cpp.git"},
		{"/local/path", "git", "/local/path"},
		{"https://github.com/x.git", "", "https://github.com/x.git"},
	}
	for _, tt := range tests {
		if got := remoteURL(tt.raw, tt.user); got != tt.want {
			t.Errorf("remoteURL(%q, %q) = %q, want %q", tt.raw, tt.user, got, tt.want)
		}
	}
}

func TestLocalFetch(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "src", "Inotify.cpp"), []byte("//"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	stale := filepath.Join(root, "inotifycpp", "stale.txt")
	os.MkdirAll(filepath.Dir(stale), 0o755)
	os.WriteFile(stale, nil, 0o644)

	dir, err := Local{Dir: src}.Fetch(context.Background(), recipe.SourceCoordinate{Subfolder: "inotifycpp"}, root)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "Inotify.cpp")); err != nil {
		t.Errorf("copied file missing: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived: %v", err)
	}
}

func TestLocalFetchMissing(t *testing.T) {
	_, err := Local{Dir: filepath.Join(t.TempDir(), "missing")}.Fetch(context.Background(), recipe.SourceCoordinate{Subfolder: "x"}, t.TempDir())
	if err == nil {
		t.Fatal("Fetch of missing directory succeeded")
	}
}
