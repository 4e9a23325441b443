package deb

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression selects how the control and data members of a .deb are compressed.
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionXz   Compression = "xz"
	CompressionNone Compression = "none"
)

// ParseCompression maps a user supplied name to a Compression. An empty name selects gzip.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(name))); c {
	case "", CompressionGzip, "gz":
		return CompressionGzip, nil
	case CompressionXz:
		return CompressionXz, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unsupported compression %q", name)
	}
}

// Ext returns the member name suffix for c, e.g. ".gz".
func (c Compression) Ext() string {
	switch c {
	case CompressionXz:
		return ".xz"
	case CompressionNone:
		return ""
	default:
		return ".gz"
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newWriter returns a writer compressing into w. Closing it flushes the compressor but
// does not close w.
func (c Compression) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionXz:
		return xz.NewWriter(w)
	case CompressionNone:
		return nopWriteCloser{w}, nil
	default:
		return gzip.NewWriter(w), nil
	}
}

// openMember returns a reader decompressing an ar member according to its name suffix.
func openMember(name string, r io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gzr, func() { gzr.Close() }, nil
	case strings.HasSuffix(name, ".xz"):
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xzr, func() {}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(name, ".tar"):
		return r, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive member %s", name)
	}
}
