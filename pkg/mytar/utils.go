// Package mytar turns a file or directory tree into a single tar stream for
// backup, and extracts such a stream again on restore.
package mytar

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhengshuai-xiao/xbackup/internal"
)

var logger = internal.GetLogger("mytar")

var ErrUnsafePath = errors.New("unsafe file path in tar archive")

// Pack writes a tar archive of srcPath to writer. Names in the archive are
// relative to the parent of srcPath, so packing "/tmp/foo" yields "foo/...".
// Symlinks are stored as links, other special files are skipped.
func Pack(srcPath string, writer io.Writer) error {
	tw := tar.NewWriter(writer)
	baseDir := filepath.Dir(filepath.Clean(srcPath))

	var files int
	err := filepath.Walk(srcPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		var link string
		switch {
		case info.Mode().IsRegular(), info.IsDir():
		case info.Mode()&os.ModeSymlink != 0:
			if link, err = os.Readlink(path); err != nil {
				return fmt.Errorf("reading link %s: %w", path, err)
			}
		default:
			logger.Warnf("skipping special file %s (%s)", path, info.Mode().Type())
			return nil
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("creating tar header for %s: %w", path, err)
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return fmt.Errorf("getting relative path for %s: %w", path, err)
		}
		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", header.Name, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening file %s: %w", path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tw, file); err != nil {
			return fmt.Errorf("copying file content for %s: %w", path, err)
		}
		files++
		return nil
	})
	if err != nil {
		tw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar archive: %w", err)
	}
	logger.Debugf("packed %d files from %s", files, srcPath)
	return nil
}

// safeJoin resolves name below destPath and rejects anything escaping it.
func safeJoin(destPath, name string) (string, error) {
	root := filepath.Clean(destPath)
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// Unpack extracts a tar archive from reader below destPath.
func Unpack(reader io.Reader, destPath string) error {
	tr := tar.NewReader(reader)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading next tar entry: %w", err)
		}

		target, err := safeJoin(destPath, header.Name)
		if err != nil {
			return err
		}
		mode := os.FileMode(header.Mode).Perm()

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode|0700); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", target, err)
			}
			if err := writeFile(target, tr, mode); err != nil {
				return err
			}
			if err := os.Chtimes(target, header.ModTime, header.ModTime); err != nil {
				logger.Warnf("failed to set mtime of %s: %v", target, err)
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("%w: absolute link %s -> %s", ErrUnsafePath, header.Name, header.Linkname)
			}
			if _, err := safeJoin(destPath, filepath.Join(filepath.Dir(header.Name), header.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("creating link %s: %w", target, err)
			}
		default:
			logger.Warnf("unsupported tar entry type %c for %s", header.Typeflag, header.Name)
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing file content for %s: %w", target, err)
	}
	return out.Close()
}
