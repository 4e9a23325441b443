package deb

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Md5sums computes the content of a DEBIAN/md5sums file for the given files.
// Paths are relative to root; each line is "{hex}  {path}", sorted by path.
func Md5sums(root string, files []string) ([]byte, error) {
	paths := make([]string, len(files))
	copy(paths, files)
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		sum, err := md5File(filepath.Join(root, path))
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", path, err)
		}
		// md5sums file expects paths relative to root, without leading "./" or "/"
		cleanPath := strings.TrimPrefix(strings.TrimPrefix(filepath.ToSlash(path), "./"), "/")
		fmt.Fprintf(&b, "%s  %s\n", sum, cleanPath)
	}
	return []byte(b.String()), nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PayloadFiles walks a staged package tree and returns the paths, relative to pkgDir and
// sorted, of every regular file outside the DEBIAN directory.
func PayloadFiles(pkgDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(pkgDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == ControlDir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
