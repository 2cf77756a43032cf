package build

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Export writes the package output in srcDir to dest. A dest ending in
// ".zip" becomes a zip archive, one ending in ".tar.zst" a zstd
// compressed tarball; anything else is a directory copy.
func Export(srcDir, dest string) error {
	switch {
	case strings.HasSuffix(dest, ".zip"):
		return zipDir(srcDir, dest)
	case strings.HasSuffix(dest, ".tar.zst"):
		return tarZstDir(srcDir, dest)
	}
	return copyDir(srcDir, dest)
}

// copyDir copies srcDir to dest, keeping symlinks such as versioned
// shared library names.
func copyDir(srcDir, dest string) error {
	return walkFiles(srcDir, func(rel, path string, info fs.FileInfo) error {
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if err != nil {
			return err
		}
		if err := copyFile(out, path); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	err = walkFiles(srcDir, func(rel, path string, info fs.FileInfo) error {
		if !info.Mode().IsRegular() {
			// zip has no portable symlinks
			return nil
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Method = zip.Deflate
		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyFile(writer, path)
	})
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func tarZstDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	err = walkFiles(srcDir, func(rel, path string, info fs.FileInfo) error {
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			link = target
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = rel
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if link != "" {
			return nil
		}
		return copyFile(tw, path)
	})
	if err != nil {
		tw.Close()
		zw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// walkFiles calls fn for every regular file and symlink below dir with
// its slash separated relative path.
func walkFiles(dir string, fn func(rel, path string, info fs.FileInfo) error) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("export: unsupported file %s", path)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), path, info)
	})
}

func copyFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}
