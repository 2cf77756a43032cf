//go:build !unix

package fsutil

import (
	"fmt"
	"os"
)

// Writable reports an error if the current user cannot create files in dir.
func Writable(dir string) error {
	f, err := os.CreateTemp(dir, ".llpkg-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
