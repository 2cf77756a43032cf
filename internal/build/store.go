// Package build lays out the per-package workspace: source and build
// trees, package output directories and the record of packaged
// configurations.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llpkg/pkgs/mod/module"
	"github.com/goplus/llpkg/recipe"
)

// Workspace manages the directories of every configuration of one
// session. Distinct configurations never share a directory.
type Workspace struct {
	dir     string
	session *recipe.Session
	pkgID   string
}

// NewWorkspace returns the workspace of s rooted at dir.
func NewWorkspace(dir string, s *recipe.Session) (*Workspace, error) {
	if _, err := module.EscapeName(s.Identity().Name); err != nil {
		return nil, err
	}
	return &Workspace{
		dir:     dir,
		session: s,
		pkgID:   PackageID(s.Settings(), s.Options()),
	}, nil
}

// PackageID returns the package ID of the session's configuration.
func (w *Workspace) PackageID() string { return w.pkgID }

// cacheDir returns workspaceDir/<name>.
func (w *Workspace) cacheDir() string {
	return filepath.Join(w.dir, w.session.Identity().Name)
}

// SourceRoot returns the directory below which sources are materialized.
func (w *Workspace) SourceRoot() string {
	return filepath.Join(w.cacheDir(), "src", w.pkgID)
}

// BuildDir returns the build tree of this configuration.
func (w *Workspace) BuildDir() string {
	return filepath.Join(w.cacheDir(), "build", w.pkgID)
}

// InstallDir returns the package output directory:
// workspaceDir/<name>@<version>-<packageID>.
func (w *Workspace) InstallDir() (string, error) {
	id := w.session.Identity()
	dir, err := module.Version{Name: id.Name, Version: id.Version}.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s", dir, w.pkgID)), nil
}

// Clean removes the build tree and any previous package output of this
// configuration.
func (w *Workspace) Clean() error {
	install, err := w.InstallDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{w.BuildDir(), install} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the recorded entry of this configuration if it was
// built from source and its package output still exists.
func (w *Workspace) Lookup(source string) (*Entry, bool, error) {
	c, err := loadCache(filepath.Join(w.cacheDir(), cacheFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	e, ok := c.get(w.session.Identity().Version, w.pkgID)
	if !ok || e.Source != source {
		return nil, false, nil
	}
	install, err := w.InstallDir()
	if err != nil {
		return nil, false, err
	}
	if _, err := os.Stat(install); err != nil {
		return nil, false, nil
	}
	return e, true, nil
}

// Record stores the artifacts of a packaged configuration.
func (w *Workspace) Record(a *recipe.Artifacts, source string) (*Entry, error) {
	path := filepath.Join(w.cacheDir(), cacheFile)
	c, err := loadCache(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		c = &buildCache{}
	}
	s := w.session.Settings()
	settings := make(map[string]string)
	for _, k := range []string{recipe.SettingOS, recipe.SettingCompiler, recipe.SettingBuildType, recipe.SettingArch} {
		if v, _ := s.Get(k); v != "" {
			settings[k] = v
		}
	}
	e := &Entry{
		Matrix:    Matrix(s, w.session.Options()),
		Settings:  settings,
		Options:   w.session.Options().Map(),
		Files:     a.Files,
		Libraries: a.Libraries,
		Source:    source,
		BuildTime: time.Now().UTC(),
	}
	c.set(w.session.Identity().Version, w.pkgID, e)
	if err := saveCache(path, c); err != nil {
		return nil, err
	}
	return e, nil
}
