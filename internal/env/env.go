// Package env locates the directories llpkg works in.
package env

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the work directory.
const HomeEnv = "LLPKG_HOME"

// WorkDir returns $LLPKG_HOME, or .llpkg below the user cache directory.
func WorkDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llpkg"), nil
}

// StoreDir returns the directory holding installed dependencies, one
// <name>@<version> directory each.
func StoreDir() (string, error) {
	return subDir("store")
}

// WorkspaceDir returns the directory holding source trees, build trees
// and package outputs.
func WorkspaceDir() (string, error) {
	return subDir("workspace")
}

func subDir(name string) (string, error) {
	work, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(work, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
