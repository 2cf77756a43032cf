// Package generator writes build-system specific files describing the
// resolved dependencies of a build.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/llpkg/pkgs/buildsys"
)

// Generator writes a file into the build directory and returns its path.
type Generator interface {
	Name() string
	Generate(buildDir string, deps []buildsys.Dependency) (string, error)
}

var registry = map[string]Generator{
	"cmake": CMake{},
}

// Lookup returns the generator registered under name.
func Lookup(name string) (Generator, bool) {
	g, ok := registry[name]
	return g, ok
}

// CMakeFile is the file written by the cmake generator.
const CMakeFile = "llpkgbuildinfo.cmake"

// CMake writes an initial-cache script (cmake -C) that points CMake at
// every dependency root.
type CMake struct{}

func (CMake) Name() string { return "cmake" }

func (CMake) Generate(buildDir string, deps []buildsys.Dependency) (string, error) {
	sorted := make([]buildsys.Dependency, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("# Generated by llpkg. Do not edit.\n")
	var roots, includes, libs []string
	for _, dep := range sorted {
		root := cmakePath(dep.Root)
		fmt.Fprintf(&b, "set(LLPKG_%s_ROOT \"%s\" CACHE PATH \"\")\n", cmakeIdent(dep.Name), root)
		fmt.Fprintf(&b, "set(LLPKG_%s_VERSION \"%s\" CACHE STRING \"\")\n", cmakeIdent(dep.Name), dep.Version)
		roots = append(roots, root)
		includes = append(includes, root+"/include")
		libs = append(libs, root+"/lib")
	}
	fmt.Fprintf(&b, "set(LLPKG_INCLUDE_DIRS \"%s\" CACHE STRING \"\")\n", strings.Join(includes, ";"))
	fmt.Fprintf(&b, "set(LLPKG_LIB_DIRS \"%s\" CACHE STRING \"\")\n", strings.Join(libs, ";"))
	if len(roots) > 0 {
		fmt.Fprintf(&b, "set(CMAKE_PREFIX_PATH \"%s\" CACHE STRING \"\")\n", strings.Join(roots, ";"))
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(buildDir, CMakeFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func cmakePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, `\`, `\\`)
	return strings.ReplaceAll(p, `"`, `\"`)
}

// cmakeIdent turns a package name into an upper-case CMake identifier.
func cmakeIdent(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}
