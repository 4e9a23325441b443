package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/debbie/deb"
)

// Checksummer computes the md5sums manifest of files, given relative to dir.
type Checksummer interface {
	Checksum(ctx context.Context, dir string, files []string) ([]byte, error)
}

// Packager turns the staged tree dir/name into an archive and returns the archive's path.
type Packager interface {
	Package(ctx context.Context, dir, name string) (string, error)
}

// Md5sumTool is the default Checksummer. It runs md5sum(1) in dir.
type Md5sumTool struct {
	Runner Runner
}

// Checksum implements Checksummer.
func (m Md5sumTool) Checksum(ctx context.Context, dir string, files []string) ([]byte, error) {
	if len(files) == 0 {
		// md5sum without operands would read stdin.
		return nil, nil
	}
	return run(ctx, m.Runner, Command{
		Name: "md5sum",
		Args: append([]string{"--"}, files...),
		Dir:  dir,
	})
}

// NativeChecksummer computes md5sums in process.
type NativeChecksummer struct{}

// Checksum implements Checksummer.
func (NativeChecksummer) Checksum(_ context.Context, dir string, files []string) ([]byte, error) {
	return deb.Md5sums(dir, files)
}

// DpkgDeb is the default Packager. It runs `dpkg-deb --build name` in dir.
type DpkgDeb struct {
	Runner Runner
}

// Package implements Packager.
func (p DpkgDeb) Package(ctx context.Context, dir, name string) (string, error) {
	_, err := run(ctx, p.Runner, Command{
		Name: "dpkg-deb",
		Args: []string{"--build", name},
		Dir:  dir,
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".deb"), nil
}

// NativePackager writes the archive in process, for hosts without dpkg-deb.
type NativePackager struct {
	Compression deb.Compression
}

// Package implements Packager.
func (p NativePackager) Package(_ context.Context, dir, name string) (string, error) {
	out := filepath.Join(dir, name+".deb")
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := deb.WriteStaged(f, filepath.Join(dir, name), p.Compression); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return out, nil
}
