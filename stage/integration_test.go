package stage

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/debbie/deb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireTools skips the test unless every named tool is in PATH.
func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found, skipping integration test", tool)
		}
	}
}

func inspectFile(t *testing.T, path string) *deb.Info {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := deb.Inspect(f)
	require.NoError(t, err)
	return info
}

func TestIntegrationMinimalPackage(t *testing.T) {
	requireTools(t, "dpkg-deb")

	b, err := New(Values{
		"shortName":        "foo",
		"version":          "1.0",
		"section":          "test",
		"description":      "d",
		"maintainer":       "m",
		"workspaceBasedir": t.TempDir(),
	})
	require.NoError(t, err)

	path, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "foo_1.0_all.deb"))
	assert.FileExists(t, path)

	out, err := exec.Command("dpkg-deb", "--info", path).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "Architecture: all")
	assert.Contains(t, string(out), "Priority: optional")

	info := inspectFile(t, path)
	assert.Contains(t, info.Control, "\nDepends: \n")
	assert.NotContains(t, info.ControlFiles, "md5sums")
}

func TestIntegrationSources(t *testing.T) {
	requireTools(t, "cp", "rsync", "md5sum", "dpkg-deb")
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".git", "HEAD"), []byte("ref\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "docs", "guide"), []byte("guide\n"), 0644))

	raw := f.values()
	raw[KeyExclude] = []string{".git"}
	b, err := New(raw)
	require.NoError(t, err)
	b.AddSource(f.file, "")
	b.AddSource(f.dir, "")
	require.NoError(t, b.SetPostinst("#!/bin/sh\nexit 0"))

	wd := getwd(t)
	path, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wd, getwd(t))

	info := inspectFile(t, path)
	assert.True(t, info.HasFile(f.file))
	assert.True(t, info.HasFile(filepath.Join(f.dir, "readme")))
	assert.True(t, info.HasFile(filepath.Join(f.dir, "docs", "guide")))
	assert.False(t, info.HasFile(filepath.Join(f.dir, ".git", "HEAD")))
	assert.False(t, info.HasFile(filepath.Join(f.dir, ".git")))
	assert.Equal(t, "#!/bin/sh\nexit 0\n", info.ControlFiles["postinst"])

	// One manifest entry per staged regular file, nothing from DEBIAN.
	sums := strings.Split(strings.TrimSpace(info.ControlFiles["md5sums"]), "\n")
	assert.Len(t, sums, 3)
	for _, line := range sums {
		assert.NotContains(t, line, "DEBIAN/")
	}
	assert.Contains(t, info.ControlFiles["md5sums"], md5Hex("a=b\n")+"  "+strings.TrimLeft(f.file, "/"))
}

func TestIntegrationFileSources(t *testing.T) {
	requireTools(t, "cp", "md5sum", "dpkg-deb")
	f := newFixture(t)
	other := filepath.Join(f.srcDir, "bin", "foo")
	require.NoError(t, os.MkdirAll(filepath.Dir(other), 0755))
	require.NoError(t, os.WriteFile(other, []byte("#!/bin/sh\n"), 0755))

	b, err := New(f.values())
	require.NoError(t, err)
	b.AddSource(f.file, "")
	b.AddSource(other, "/usr/bin")

	wd := getwd(t)
	path, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wd, getwd(t))

	info := inspectFile(t, path)
	assert.True(t, info.HasFile(f.file))
	assert.True(t, info.HasFile("/usr/bin/foo"))
	sums := strings.Split(strings.TrimSpace(info.ControlFiles["md5sums"]), "\n")
	assert.ElementsMatch(t, []string{
		md5Hex("a=b\n") + "  " + strings.TrimLeft(f.file, "/"),
		md5Hex("#!/bin/sh\n") + "  usr/bin/foo",
	}, sums)

	out, err := exec.Command("dpkg-deb", "--contents", path).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "./usr/bin/foo")
}

func TestIntegrationDotGlobExclude(t *testing.T) {
	requireTools(t, "rsync", "dpkg-deb")
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".git", "HEAD"), []byte("ref\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".hidden"), []byte("x\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "sub", ".svn"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "sub", "kept"), []byte("k\n"), 0644))

	raw := f.values()
	raw[KeyExclude] = ".[^.]*"
	b, err := New(raw)
	require.NoError(t, err)
	b.AddSource(f.dir, "")

	path, err := b.Build(context.Background())
	require.NoError(t, err)

	info := inspectFile(t, path)
	assert.True(t, info.HasFile(filepath.Join(f.dir, "readme")))
	assert.True(t, info.HasFile(filepath.Join(f.dir, "sub", "kept")))
	assert.False(t, info.HasFile(filepath.Join(f.dir, ".git")))
	assert.False(t, info.HasFile(filepath.Join(f.dir, ".hidden")))
	assert.False(t, info.HasFile(filepath.Join(f.dir, "sub", ".svn")))
}

func TestIntegrationCustomDestination(t *testing.T) {
	requireTools(t, "cp", "rsync", "md5sum", "dpkg-deb")
	f := newFixture(t)

	b, err := New(f.values())
	require.NoError(t, err)
	b.AddSource(f.file, "/etc/foo")
	b.AddSource(f.dir, "/usr/share/foo")

	path, err := b.Build(context.Background())
	require.NoError(t, err)

	info := inspectFile(t, path)
	assert.True(t, info.HasFile("/etc/foo/foo.conf"))
	assert.True(t, info.HasFile("/usr/share/foo/share/readme"))
	assert.False(t, info.HasFile(f.file))
	for _, c := range info.Contents {
		assert.NotContains(t, c, strings.TrimLeft(f.srcDir, "/"))
	}
}

func TestIntegrationCommandFailureKeepsWorkingDirectory(t *testing.T) {
	requireTools(t, "cp")
	f := newFixture(t)

	b, err := New(f.values())
	require.NoError(t, err)
	// An unreadable file makes cp fail.
	locked := filepath.Join(f.srcDir, "locked")
	require.NoError(t, os.WriteFile(locked, []byte("x"), 0000))
	if os.Geteuid() == 0 {
		t.Skip("running as root, permissions are not enforced")
	}
	b.AddSource(locked, "")

	wd := getwd(t)
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, wd, getwd(t))

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.NotZero(t, cmdErr.ExitCode)
	assert.NotEmpty(t, cmdErr.Output)
}

func TestOSRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
	r := NewOSRunner(nil)
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd -P; echo out; echo err >&2; exit 3"}, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, string(res.Output), "out")
	assert.Contains(t, string(res.Output), "err")
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, string(res.Output), resolved)

	_, err = r.Run(context.Background(), Command{Name: "definitely-not-a-command-debbie"})
	assert.Error(t, err)

	_, err = run(context.Background(), r, Command{Name: "definitely-not-a-command-debbie"})
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, -1, cmdErr.ExitCode)
}
