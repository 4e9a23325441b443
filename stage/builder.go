package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/debbie/deb"
	"github.com/hashicorp/go-hclog"
)

// Step names a stage of Build. It is carried by StepError.
type Step string

const (
	StepStage    Step = "stage"
	StepControl  Step = "control"
	StepScripts  Step = "scripts"
	StepSources  Step = "sources"
	StepManifest Step = "manifest"
	StepPackage  Step = "package"
)

// State is the progress of a Builder.
type State int

const (
	StateResolved State = iota
	StateStagedDirs
	StateStagedMetadata
	StateStagedSources
	StatePackaged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateStagedDirs:
		return "staged-dirs"
	case StateStagedMetadata:
		return "staged-metadata"
	case StateStagedSources:
		return "staged-sources"
	case StatePackaged:
		return "packaged"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScriptNames returns the maintainer scripts the builder knows how to write.
func ScriptNames() []string {
	return []string{string(deb.FilePostinst)}
}

// Builder stages and builds one package. It is consumed by a single call to Build.
type Builder struct {
	config Config
	state  State

	runner      Runner
	checksummer Checksummer
	packager    Packager
	logger      hclog.Logger
	listener    Listener
	now         func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRunner sets the Runner used for cp, rsync and the default tools.
func WithRunner(r Runner) Option {
	return func(b *Builder) { b.runner = r }
}

// WithChecksummer replaces the md5sum(1) based manifest generation.
func WithChecksummer(c Checksummer) Option {
	return func(b *Builder) { b.checksummer = c }
}

// WithPackager replaces the dpkg-deb based packaging step.
func WithPackager(p Packager) Option {
	return func(b *Builder) { b.packager = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithListener registers a callback receiving build events.
func WithListener(l Listener) Option {
	return func(b *Builder) { b.listener = l }
}

// WithClock sets the time source of the default buildId.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New resolves raw into a configuration and returns a Builder for it.
func New(raw Values, opts ...Option) (*Builder, error) {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = hclog.NewNullLogger()
	}
	if b.runner == nil {
		b.runner = NewOSRunner(b.logger)
	}
	if b.checksummer == nil {
		b.checksummer = Md5sumTool{Runner: b.runner}
	}
	if b.packager == nil {
		b.packager = DpkgDeb{Runner: b.runner}
	}

	config, err := resolve(raw, b.now)
	if err != nil {
		return nil, err
	}
	b.config = config
	return b, nil
}

// AddSource appends a file or directory to copy into the package. dst may be empty.
func (b *Builder) AddSource(src, dst string) {
	b.config.Sources = append(b.config.Sources, Source{Src: src, Dst: dst})
}

// SetPostinst sets the script run after installation. A non-empty script must start with a
// shebang; it is stored with exactly one trailing newline.
func (b *Builder) SetPostinst(script string) error {
	if err := checkShebang(b.config.ShortName, script); err != nil {
		return err
	}
	if script != "" {
		script = NormalizeScript(script)
	}
	b.config.Postinst = script
	return nil
}

// Config returns a copy of the resolved configuration.
func (b *Builder) Config() Config {
	return b.config.clone()
}

// State returns how far the builder got.
func (b *Builder) State() State {
	return b.state
}

// Build stages the package under PkgDir and archives it. It returns the absolute path of
// the .deb. On failure the staging tree is left as it is and the error is a *StepError.
func (b *Builder) Build(ctx context.Context) (string, error) {
	if b.state != StateResolved {
		return "", ErrAlreadyBuilt
	}

	path, err := b.build(ctx)
	if err != nil {
		b.state = StateFailed
		b.logger.Error("build failed", "package", b.config.FullName, "error", err)
		return "", err
	}
	b.state = StatePackaged
	return path, nil
}

func (b *Builder) build(ctx context.Context) (string, error) {
	c := b.config
	debDir := filepath.Join(c.PkgDir, deb.ControlDir)

	// Example hierarchy where workspaceBasedir is /tmp/ws:
	//
	//	/tmp/ws/mypackage/2.0/20111110-120000/
	//	  mypackage_2.0_amd64/
	//	    DEBIAN/control
	//	    DEBIAN/md5sums
	//	    usr/bin/mytool
	//	  mypackage_2.0_amd64.deb
	b.logger.Info("staging package", "package", c.FullName, "dir", c.PkgDir)
	if err := os.MkdirAll(c.PkgDir, 0755); err != nil {
		return "", &StepError{Step: StepStage, Err: err}
	}
	if err := os.MkdirAll(debDir, 0755); err != nil {
		return "", &StepError{Step: StepStage, Err: err}
	}
	b.state = StateStagedDirs
	b.emit(EventStaged{Path: c.PkgDir})

	controlPath := filepath.Join(debDir, string(deb.FileControl))
	if err := os.WriteFile(controlPath, []byte(c.Control().String()), 0644); err != nil {
		return "", &StepError{Step: StepControl, Err: err}
	}
	b.emit(EventControlWritten{Path: controlPath})

	if err := b.writeScripts(debDir); err != nil {
		return "", &StepError{Step: StepScripts, Err: err}
	}
	b.state = StateStagedMetadata

	sourceFilePresent := false
	for _, src := range c.Sources {
		isFile, err := b.stageSource(ctx, src)
		if err != nil {
			return "", &StepError{Step: StepSources, Err: err}
		}
		sourceFilePresent = sourceFilePresent || isFile
	}

	// At least one source is a plain file (not a meta-package), so include a manifest.
	if sourceFilePresent {
		if err := b.writeManifest(ctx, debDir); err != nil {
			return "", &StepError{Step: StepManifest, Err: err}
		}
	}
	b.state = StateStagedSources

	b.logger.Info("packaging", "package", c.FullName)
	path, err := b.packager.Package(ctx, c.BuildDir, c.FullName)
	if err != nil {
		return "", &StepError{Step: StepPackage, Err: err}
	}
	b.emit(EventPackageBuilt{Path: path})
	b.logger.Info("package built", "path", path)
	return path, nil
}

func (b *Builder) writeScripts(debDir string) error {
	scripts := map[string]string{
		string(deb.FilePostinst): b.config.Postinst,
	}
	for _, name := range ScriptNames() {
		body := scripts[name]
		if body == "" {
			continue
		}
		path := filepath.Join(debDir, name)
		if err := os.WriteFile(path, []byte(body), 0755); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		// WriteFile honours the umask.
		if err := os.Chmod(path, 0755); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
		b.emit(EventScriptWritten{Name: name, Path: path})
	}
	return nil
}

// destination returns where src is copied to, rooted in PkgDir, and whether it was
// supplied by the caller.
func (b *Builder) destination(src Source, isDir bool) (string, bool) {
	pkgDir := b.config.PkgDir
	if src.Dst != "" {
		return filepath.Join(pkgDir, strings.TrimLeft(src.Dst, "/")), true
	}
	if isDir {
		return filepath.Join(pkgDir, strings.TrimLeft(src.Src, "/")), false
	}
	return filepath.Join(pkgDir, strings.TrimLeft(filepath.Dir(src.Src), "/")), false
}

// stageSource copies one source into the tree and reports whether it was a plain file.
func (b *Builder) stageSource(ctx context.Context, src Source) (bool, error) {
	info, err := os.Stat(src.Src)
	if err != nil {
		return false, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s: unsupported file type %s", src.Src, info.Mode().Type())
	}

	dst, customDst := b.destination(src, info.IsDir())
	if err := os.MkdirAll(dst, 0755); err != nil {
		return false, err
	}

	if info.Mode().IsRegular() {
		// cp -a keeps mode, ownership and timestamps.
		if _, err := run(ctx, b.runner, Command{
			Name: "cp",
			Args: []string{"-a", "--", src.Src, dst + "/"},
		}); err != nil {
			return false, err
		}
		b.emit(EventSourceStaged{Src: src.Src, Dst: dst})
		return true, nil
	}

	// Without a trailing slash rsync copies the directory itself into target.
	target := dst
	if !customDst {
		target = filepath.Dir(dst)
	}
	args := []string{"--recursive", "--links", "--perms", "--times"}
	for _, pattern := range b.config.Exclude {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args, "--", filepath.Clean(src.Src), target)
	if _, err := run(ctx, b.runner, Command{Name: "rsync", Args: args}); err != nil {
		return false, err
	}
	b.emit(EventSourceStaged{Src: src.Src, Dst: dst, Dir: true})
	return false, nil
}

func (b *Builder) writeManifest(ctx context.Context, debDir string) error {
	files, err := deb.PayloadFiles(b.config.PkgDir)
	if err != nil {
		return fmt.Errorf("listing payload: %w", err)
	}
	sums, err := b.checksummer.Checksum(ctx, b.config.PkgDir, files)
	if err != nil {
		return err
	}
	path := filepath.Join(debDir, string(deb.FileMd5sums))
	if err := os.WriteFile(path, sums, 0644); err != nil {
		return err
	}
	b.emit(EventManifestWritten{Path: path, Entries: len(files)})
	return nil
}

func (b *Builder) emit(e fmt.Stringer) {
	b.logger.Debug("event", "event", e.String())
	if b.listener != nil {
		b.listener(e)
	}
}
