package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/blakesmith/ar"
)

// Info is what Inspect learns from a .deb: the control metadata files and the payload
// listing.
type Info struct {
	// Control is the raw text of the control file.
	Control string
	// ControlFiles maps control archive member names (e.g. "postinst", "md5sums") to their content.
	ControlFiles map[string]string
	// ControlModes maps control archive member names to their permission bits.
	ControlModes map[string]int64
	// Contents lists the data archive entries in archive order, as stored (e.g. "./usr/bin/app").
	Contents []string
}

// Field returns the value of a control field, or "" when absent.
func (i *Info) Field(field ControlField) string {
	return ParseField(i.Control, field)
}

// HasFile reports whether the payload contains dest, an absolute install path such as
// "/usr/bin/app".
func (i *Info) HasFile(dest string) bool {
	want := "./" + strings.TrimPrefix(path.Clean("/"+dest), "/")
	for _, c := range i.Contents {
		if strings.TrimSuffix(c, "/") == want {
			return true
		}
	}
	return false
}

// Inspect reads a .deb from r. Members compressed with gzip, xz or zstd, and plain tar
// members, are supported.
func Inspect(r io.Reader) (*Info, error) {
	info := &Info{
		ControlFiles: make(map[string]string),
		ControlModes: make(map[string]int64),
	}
	sawControl := false

	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}

		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		switch {
		case strings.HasPrefix(name, string(PkgControlTar)):
			sawControl = true
			if err := readControlMember(name, arR, info); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
		case strings.HasPrefix(name, string(PkgDataTar)):
			if err := readDataMember(name, arR, info); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
		}
	}

	if !sawControl {
		return nil, fmt.Errorf("control archive not found")
	}
	return info, nil
}

func readControlMember(name string, r io.Reader, info *Info) error {
	zr, closeFn, err := openMember(name, r)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(zr)
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return err
		}
		base := path.Base(th.Name)
		info.ControlFiles[base] = buf.String()
		info.ControlModes[base] = th.Mode
		if ControlFile(base) == FileControl {
			info.Control = buf.String()
		}
	}
}

func readDataMember(name string, r io.Reader, info *Info) error {
	zr, closeFn, err := openMember(name, r)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(zr)
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		entry := th.Name
		if !strings.HasPrefix(entry, "./") {
			entry = "./" + strings.TrimPrefix(entry, "/")
		}
		info.Contents = append(info.Contents, entry)
	}
}
