package build

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/llpkg/recipe"
)

func testSession(t *testing.T, buildType, shared string) *recipe.Session {
	t.Helper()
	r := &recipe.Recipe{
		Identity: recipe.Identity{Name: "inotifycpp", Version: "1.0.0"},
		Settings: []string{recipe.SettingOS, recipe.SettingBuildType, recipe.SettingArch},
		Options:  recipe.OptionSchema{recipe.OptionShared: recipe.BoolOption(true)},
		Source:   recipe.SourceCoordinate{Kind: "git", Subfolder: "inotifycpp"},
	}
	s, err := r.NewSession(recipe.Settings{OS: "Linux", BuildType: buildType, Arch: "x86_64"},
		map[string]string{recipe.OptionShared: shared})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestMatrixAndPackageID(t *testing.T) {
	s := testSession(t, recipe.Debug, "true")
	if got := Matrix(s.Settings(), s.Options()); got != "Linux-Debug-x86_64|shared=true" {
		t.Errorf("Matrix = %q", got)
	}
	id := PackageID(s.Settings(), s.Options())
	if len(id) != 40 {
		t.Errorf("PackageID = %q, want 40 hex chars", id)
	}
	if again := PackageID(s.Settings(), s.Options()); again != id {
		t.Errorf("PackageID not stable: %s vs %s", id, again)
	}
	other := testSession(t, recipe.Debug, "false")
	if PackageID(other.Settings(), other.Options()) == id {
		t.Error("different options share a package ID")
	}
}

func TestWorkspaceLayout(t *testing.T) {
	root := t.TempDir()
	s := testSession(t, recipe.Release, "true")
	w, err := NewWorkspace(root, s)
	if err != nil {
		t.Fatal(err)
	}
	id := w.PackageID()
	if got, want := w.SourceRoot(), filepath.Join(root, "inotifycpp", "src", id); got != want {
		t.Errorf("SourceRoot = %q, want %q", got, want)
	}
	if got, want := w.BuildDir(), filepath.Join(root, "inotifycpp", "build", id); got != want {
		t.Errorf("BuildDir = %q, want %q", got, want)
	}
	install, err := w.InstallDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "inotifycpp@1.0.0-"+id); install != want {
		t.Errorf("InstallDir = %q, want %q", install, want)
	}

	w2, _ := NewWorkspace(root, testSession(t, recipe.Debug, "true"))
	if w2.BuildDir() == w.BuildDir() || w2.SourceRoot() == w.SourceRoot() {
		t.Error("configurations share a directory")
	}
}

const testSource = "https://github.com/erikzenker/inotify-cpp.git@0f1e2d3c"

func TestRecordAndLookup(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspace(root, testSession(t, recipe.Debug, "false"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := w.Lookup(testSource); ok || err != nil {
		t.Fatalf("Lookup on empty workspace = %v, %v", ok, err)
	}

	install, _ := w.InstallDir()
	if err := os.MkdirAll(install, 0o755); err != nil {
		t.Fatal(err)
	}
	a := &recipe.Artifacts{Dir: install, Files: []string{"lib/libinotify-cpp.a"}, Libraries: []string{"lib/libinotify-cpp.a"}}
	if _, err := w.Record(a, testSource); err != nil {
		t.Fatalf("Record: %v", err)
	}

	e, ok, err := w.Lookup(testSource)
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v", ok, err)
	}
	if e.Matrix != "Linux-Debug-x86_64|shared=false" || e.Options["shared"] != "false" || e.Settings["build_type"] != "Debug" {
		t.Errorf("Entry = %+v", e)
	}
	if len(e.Files) != 1 || e.Source != testSource {
		t.Errorf("Entry = %+v", e)
	}

	// Other configurations are not affected.
	w2, _ := NewWorkspace(root, testSession(t, recipe.Release, "false"))
	if _, ok, _ := w2.Lookup(testSource); ok {
		t.Error("Lookup found an entry for another configuration")
	}

	// Removing the output invalidates the entry.
	if err := w.Clean(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := w.Lookup(testSource); ok {
		t.Error("Lookup found an entry without package output")
	}
}

func TestLookupSourceChanged(t *testing.T) {
	w, err := NewWorkspace(t.TempDir(), testSession(t, recipe.Release, "true"))
	if err != nil {
		t.Fatal(err)
	}
	install, _ := w.InstallDir()
	if err := os.MkdirAll(install, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Record(&recipe.Artifacts{Dir: install, Files: []string{"lib/libinotify-cpp.so"}}, testSource); err != nil {
		t.Fatalf("Record: %v", err)
	}

	moved := "https://github.com/erikzenker/inotify-cpp.git@9a8b7c6d"
	if _, ok, err := w.Lookup(moved); ok || err != nil {
		t.Errorf("Lookup(%q) = %v, %v, want a miss", moved, ok, err)
	}
	if _, ok, err := w.Lookup(testSource); !ok || err != nil {
		t.Errorf("Lookup(%q) = %v, %v, want a hit", testSource, ok, err)
	}
}

func TestLoadCacheInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), cacheFile)
	if err := os.WriteFile(path, []byte("invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadCache(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSaveCacheCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", cacheFile)
	c := &buildCache{}
	c.set("1.0.0", "id", &Entry{Matrix: "m"})
	if err := saveCache(path, c); err != nil {
		t.Fatalf("saveCache: %v", err)
	}
	loaded, err := loadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := loaded.get("1.0.0", "id"); !ok || e.Matrix != "m" {
		t.Errorf("loaded = %+v", loaded)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"1.0.0-id"`) {
		t.Errorf("cache key missing: %s", data)
	}
}
