// Package module defines the module.Version type naming one installed
// package version in a store.
package module

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Version names a specific version of a package.
type Version struct {
	Name    string // package name, e.g. "boost"
	Version string // version string, e.g. "1.76.0"
}

func (v Version) String() string {
	return v.Name + "@" + v.Version
}

// EscapeName returns name as a single file system path element. It fails
// if name is empty, contains '@' or does not stay a single local element.
func EscapeName(name string) (string, error) {
	if name == "" || strings.Contains(name, "@") {
		return "", fmt.Errorf("invalid package name %q", name)
	}
	local, err := filepath.Localize(name)
	if err != nil {
		return "", fmt.Errorf("invalid package name %q: %w", name, err)
	}
	if local != filepath.Base(local) {
		return "", fmt.Errorf("invalid package name %q: not a single path element", name)
	}
	return local, nil
}

// Dir returns the store directory name of v: "<name>@<version>".
func (v Version) Dir() (string, error) {
	name, err := EscapeName(v.Name)
	if err != nil {
		return "", err
	}
	if v.Version == "" || strings.ContainsAny(v.Version, `/\`) {
		return "", fmt.Errorf("invalid version %q of %s", v.Version, v.Name)
	}
	return name + "@" + v.Version, nil
}

// ParseDir is the inverse of Dir.
func ParseDir(dir string) (Version, bool) {
	name, ver, ok := strings.Cut(dir, "@")
	if !ok || name == "" || ver == "" {
		return Version{}, false
	}
	return Version{Name: name, Version: ver}, true
}
