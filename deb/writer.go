package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blakesmith/ar"
)

// WriteStaged builds a .deb from a staged package tree and writes it to w, the way
// `dpkg-deb --build` would: DEBIAN/ becomes the control archive and everything else the
// data archive. It returns the total number of bytes written.
func WriteStaged(w io.Writer, pkgDir string, c Compression) (int64, error) {
	cw := &countingWriter{w: w}

	controlDir := filepath.Join(pkgDir, ControlDir)
	if _, err := os.Stat(filepath.Join(controlDir, string(FileControl))); err != nil {
		return cw.n, fmt.Errorf("staged package has no control file: %w", err)
	}

	// 1. Control archive, the DEBIAN directory flattened.
	controlBuf := new(bytes.Buffer)
	if err := writeControlArchive(controlBuf, controlDir, c); err != nil {
		return cw.n, fmt.Errorf("building control archive: %w", err)
	}

	// 2. Data archive, the rest of the tree.
	dataBuf := new(bytes.Buffer)
	if err := writeDataArchive(dataBuf, pkgDir, c); err != nil {
		return cw.n, fmt.Errorf("building data archive: %w", err)
	}

	// 3. Outer ar container, members in mandatory order.
	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	if err := addBufferToAr(arW, string(PkgDebianBinary), []byte(debianBinary)); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgDebianBinary, err)
	}
	controlName := string(PkgControlTar) + c.Ext()
	if err := addBufferToAr(arW, controlName, controlBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", controlName, err)
	}
	dataName := string(PkgDataTar) + c.Ext()
	if err := addBufferToAr(arW, dataName, dataBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", dataName, err)
	}

	return cw.n, nil
}

func writeControlArchive(w io.Writer, controlDir string, c Compression) error {
	zw, err := c.newWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	entries, err := os.ReadDir(controlDir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	if err := writeDirHeader(tw, "./", controlDir); err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := writeFileEntry(tw, "./"+e.Name(), filepath.Join(controlDir, e.Name())); err != nil {
			return fmt.Errorf("writing %s: %w", e.Name(), err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func writeDataArchive(w io.Writer, pkgDir string, c Compression) error {
	zw, err := c.newWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	err = filepath.WalkDir(pkgDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case rel == ".":
			return writeDirHeader(tw, "./", path)
		case d.IsDir() && rel == ControlDir:
			return filepath.SkipDir
		case d.IsDir():
			return writeDirHeader(tw, "./"+rel+"/", path)
		case d.Type()&os.ModeSymlink != 0:
			return writeSymlinkEntry(tw, "./"+rel, path)
		case d.Type().IsRegular():
			return writeFileEntry(tw, "./"+rel, path)
		default:
			// sockets, devices and fifos have no place in a payload
			return nil
		}
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func rootHeader(info os.FileInfo, name, link string) (*tar.Header, error) {
	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return nil, err
	}
	header.Name = name
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "root", "root"
	header.Format = tar.FormatGNU
	return header, nil
}

func writeDirHeader(tw *tar.Writer, name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := rootHeader(info, name, "")
	if err != nil {
		return err
	}
	return tw.WriteHeader(header)
}

func writeSymlinkEntry(tw *tar.Writer, name, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	link, err := os.Readlink(path)
	if err != nil {
		return err
	}
	header, err := rootHeader(info, name, link)
	if err != nil {
		return err
	}
	return tw.WriteHeader(header)
}

func writeFileEntry(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := rootHeader(info, strings.TrimSuffix(name, "/"), "")
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
