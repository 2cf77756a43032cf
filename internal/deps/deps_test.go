package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/llpkg/pkgs/buildsys"
	"github.com/goplus/llpkg/recipe"
)

func makeStore(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestStoreResolvePicksHighestInRange(t *testing.T) {
	root := makeStore(t, "boost@1.75.0", "boost@1.76.0", "boost@1.76.3", "boost@1.77.0", "zlib@1.76.9")
	s := NewStore(root)

	dep, err := s.Resolve(context.Background(), recipe.MustParseRequirement("boost/[~1.76]"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if dep.Version != "1.76.3" {
		t.Errorf("Version = %q, want 1.76.3", dep.Version)
	}
	if want := filepath.Join(root, "boost@1.76.3"); dep.Root != want {
		t.Errorf("Root = %q, want %q", dep.Root, want)
	}
}

func TestStoreResolveNoMatch(t *testing.T) {
	s := NewStore(makeStore(t, "boost@1.70.0"))
	_, err := s.Resolve(context.Background(), recipe.MustParseRequirement("boost/[~1.76]"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	vs, err := s.Versions("boost")
	if err != nil || len(vs) != 0 {
		t.Errorf("Versions = %v, %v; want empty, nil", vs, err)
	}
}

func TestStoreVersionsSorted(t *testing.T) {
	s := NewStore(makeStore(t, "boost@1.9.0", "boost@1.76.0", "boost@1.10.0"))
	vs, err := s.Versions("boost")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, v := range vs {
		got = append(got, v.Version)
	}
	want := []string{"1.9.0", "1.10.0", "1.76.0"}
	if len(got) != len(want) {
		t.Fatalf("Versions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Versions = %v, want %v", got, want)
			break
		}
	}
}

func TestFixedAndChain(t *testing.T) {
	req := recipe.MustParseRequirement("boost/[~1.76]")
	fixed := Fixed{"boost": {Name: "boost", Version: "1.76.1", Root: "/opt/boost"}}
	store := NewStore(makeStore(t, "boost@1.76.5"))

	dep, err := Chain{fixed, store}.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if dep.Root != "/opt/boost" {
		t.Errorf("Root = %q, want the fixed root", dep.Root)
	}

	dep, err = Chain{Fixed{}, store}.Resolve(context.Background(), req)
	if err != nil || dep.Version != "1.76.5" {
		t.Errorf("fallback Resolve = %+v, %v", dep, err)
	}

	bad := Fixed{"boost": {Name: "boost", Version: "1.80.0", Root: "/opt/boost"}}
	if _, err := (Chain{bad, store}).Resolve(context.Background(), req); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("out-of-range fixed root: err = %v, want a range error", err)
	}
}

func TestResolveAll(t *testing.T) {
	r := &recipe.Recipe{BuildRequires: []recipe.Requirement{
		recipe.MustParseRequirement("boost/[~1.76]"),
	}}
	got, err := ResolveAll(context.Background(), Fixed{"boost": {Name: "boost", Root: "/b"}}, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != (buildsys.Dependency{Name: "boost", Root: "/b"}) {
		t.Errorf("ResolveAll = %v", got)
	}
	if _, err := ResolveAll(context.Background(), Fixed{}, r); err == nil {
		t.Error("ResolveAll with unresolvable requirement succeeded")
	}
}
