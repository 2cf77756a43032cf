package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llpkg/recipe"
	"github.com/goplus/llpkg/recipes/inotifycpp"
)

func TestParseKV(t *testing.T) {
	got, err := parseKV("--setting", []string{"build_type=Debug", " arch = x86_64 ", "build_type=Release"})
	if err != nil {
		t.Fatalf("parseKV: %v", err)
	}
	if got["build_type"] != "Release" || got["arch"] != "x86_64" {
		t.Errorf("parseKV = %v", got)
	}
	for _, bad := range []string{"noequals", "=value"} {
		if _, err := parseKV("--setting", []string{bad}); err == nil {
			t.Errorf("parseKV(%q) succeeded", bad)
		}
	}
}

func TestLookupRecipe(t *testing.T) {
	r, err := lookupRecipe(nil)
	if err != nil || r.Identity.Name != inotifycpp.Name {
		t.Fatalf("lookupRecipe(nil) = %v, %v", r, err)
	}
	if _, err := lookupRecipe([]string{"zlib"}); err == nil {
		t.Error("lookupRecipe(zlib) succeeded")
	}
}

func TestNewSessionPrecedence(t *testing.T) {
	prof := filepath.Join(t.TempDir(), "debug.yaml")
	if err := os.WriteFile(prof, []byte("settings:\n  build_type: Debug\n  compiler: gcc\noptions:\n  shared: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Profile over defaults.
	f := sessionFlags{profile: prof}
	s, err := f.newSession(inotifycpp.Recipe())
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	if s.Settings().BuildType != recipe.Debug || s.Settings().Compiler != "gcc" {
		t.Errorf("settings = %s", s.Settings())
	}
	if v, _ := s.Options().Get("shared"); v != "false" {
		t.Errorf("shared = %q", v)
	}

	// Flags over profile.
	f.settings = []string{"build_type=RelWithDebInfo"}
	f.options = []string{"shared=True"}
	s, err = f.newSession(inotifycpp.Recipe())
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	if s.Settings().BuildType != recipe.RelWithDebInfo || s.Settings().Compiler != "gcc" {
		t.Errorf("settings = %s", s.Settings())
	}
	if v, _ := s.Options().Get("shared"); v != "true" {
		t.Errorf("shared = %q", v)
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := (&sessionFlags{}).newSession(inotifycpp.Recipe())
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	if s.Settings().BuildType != recipe.Release {
		t.Errorf("build_type = %q, want Release", s.Settings().BuildType)
	}
	if v, _ := s.Options().Get("shared"); v != "true" {
		t.Errorf("shared = %q, want true", v)
	}
}

func TestNewSessionErrors(t *testing.T) {
	tests := []sessionFlags{
		{settings: []string{"build_type=Fast"}},
		{settings: []string{"color=blue"}},
		{options: []string{"shared=maybe"}},
		{options: []string{"fPIC=true"}},
		{profile: "/nonexistent/profile.yaml"},
	}
	for _, f := range tests {
		if _, err := f.newSession(inotifycpp.Recipe()); err == nil {
			t.Errorf("newSession(%+v) succeeded", f)
		}
	}
}

func TestPrintInfo(t *testing.T) {
	f := sessionFlags{settings: []string{"build_type=Debug"}, options: []string{"shared=false"}}
	s, err := f.newSession(inotifycpp.Recipe())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := printInfo(&buf, s); err != nil {
		t.Fatalf("printInfo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"inotifycpp/1.0.0",
		"requires:    boost/[~1.76]",
		"option:      shared=false",
		"build type:  Debug",
		"shared:      false",
		"static:      true",
		"source dir:  inotifycpp",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReportError(t *testing.T) {
	err := &recipe.PhaseError{
		Kind:   recipe.ErrTestFailure,
		Phase:  recipe.PhaseTest,
		Err:    &recipe.TestFailure{Total: 2, Failed: []string{"event_tests"}},
		Output: "1 tests failed out of 2",
	}
	var buf bytes.Buffer
	reportError(&buf, err, false)
	out := buf.String()
	for _, want := range []string{"failed phase: test", "  event_tests", "--- test output ---", "1 tests failed out of 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	reportError(&buf, err, true)
	if strings.Contains(buf.String(), "--- test output ---") {
		t.Errorf("streamed output repeated:\n%s", buf.String())
	}

	buf.Reset()
	reportError(&buf, errors.New("boom"), false)
	if buf.String() != "error: boom\n" {
		t.Errorf("report = %q", buf.String())
	}
}

func TestInstallToStore(t *testing.T) {
	pkg := t.TempDir()
	if err := os.MkdirAll(filepath.Join(pkg, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "lib", "libinotify-cpp.so"), []byte("elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := t.TempDir()
	dest, err := installToStore(store, "inotifycpp", "1.0.0", pkg)
	if err != nil {
		t.Fatalf("installToStore: %v", err)
	}
	if dest != filepath.Join(store, "inotifycpp@1.0.0") {
		t.Errorf("dest = %q", dest)
	}
	// Reinstalling replaces the previous copy.
	if _, err := installToStore(store, "inotifycpp", "1.0.0", pkg); err != nil {
		t.Fatalf("second installToStore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "lib", "libinotify-cpp.so")); err != nil {
		t.Errorf("installed file missing: %v", err)
	}
}

func TestOpenLocalSourceReuse(t *testing.T) {
	src := t.TempDir()
	f := sessionFlags{source: src, workspace: t.TempDir()}
	j, err := f.open(context.Background(), nil, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if j.source != src {
		t.Errorf("source = %q, want %q", j.source, src)
	}
	if _, err := os.Stat(j.workspace.SourceRoot()); !os.IsNotExist(err) {
		t.Errorf("open materialized sources: %v", err)
	}

	install, err := j.workspace.InstallDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(install, 0o755); err != nil {
		t.Fatal(err)
	}
	a := &recipe.Artifacts{Dir: install, Files: []string{"lib/libinotify-cpp.so"}}
	if _, err := j.workspace.Record(a, j.source); err != nil {
		t.Fatal(err)
	}

	again, err := f.open(context.Background(), nil, hclog.NewNullLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := again.workspace.Lookup(again.source); !ok || err != nil {
		t.Errorf("Lookup = %v, %v, want the recorded package", ok, err)
	}

	f.source = t.TempDir()
	other, err := f.open(context.Background(), nil, hclog.NewNullLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := other.workspace.Lookup(other.source); ok {
		t.Error("package built from another source tree was reused")
	}
}

func TestFetchLocalSource(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(inotify-cpp)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := sessionFlags{source: src, workspace: t.TempDir()}
	j, err := f.open(context.Background(), nil, hclog.NewNullLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := j.fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(j.workspace.SourceRoot(), inotifycpp.Name, "CMakeLists.txt")); err != nil {
		t.Errorf("sources not materialized: %v", err)
	}
}
