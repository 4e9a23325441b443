package stage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/debbie/deb"
)

const (
	// DefaultWorkspaceBasedir is the root of every staging tree unless workspaceBasedir is set.
	DefaultWorkspaceBasedir = "/var/tmp/debbie"

	// BuildIDFormat is the time layout of the default buildId, sortable and UTC.
	BuildIDFormat = "20060102-150405"

	DefaultArch     = "all"
	DefaultPriority = "optional"
)

// Configuration keys, as accepted in Values and returned by Config.Map.
const (
	KeyArch             = "arch"
	KeyBuildDir         = "buildDir"
	KeyBuildID          = "buildId"
	KeyDepends          = "depends"
	KeyDescription      = "description"
	KeyExclude          = "exclude"
	KeyFullName         = "fullName"
	KeyMaintainer       = "maintainer"
	KeyPkgDir           = "pkgDir"
	KeyPostinst         = "postinst"
	KeyPriority         = "priority"
	KeySection          = "section"
	KeyShortName        = "shortName"
	KeySources          = "sources"
	KeyVersion          = "version"
	KeyVersionDir       = "versionDir"
	KeyWorkspaceBasedir = "workspaceBasedir"
)

// Values is the key/value form of a package configuration.
type Values map[string]any

// Source is one copy instruction. Src is an absolute path to a file or directory; Dst is
// the absolute install location, or empty to derive it from Src.
type Source struct {
	Src string
	Dst string
}

// Config is a resolved package configuration. Derived fields are computed by Resolve and
// never taken from the caller.
type Config struct {
	ShortName        string
	Version          string
	Arch             string
	Section          string
	Priority         string
	Description      string
	Maintainer       string
	Depends          []string
	Exclude          []string
	Postinst         string
	BuildID          string
	WorkspaceBasedir string

	// Derived.
	FullName   string
	VersionDir string
	BuildDir   string
	PkgDir     string

	Sources []Source
}

// RequiredKeys returns the keys that must hold non-empty values, in validation order.
func RequiredKeys() []string {
	return []string{
		KeyArch,
		KeyBuildID,
		KeyShortName,
		KeyVersion,
		KeyWorkspaceBasedir,
		KeyDescription,
		KeyMaintainer,
		KeySection,
	}
}

// Resolve merges raw over the defaults, derives the path fields and validates the result.
// Any sources in raw are discarded; use Builder.AddSource.
func Resolve(raw Values) (Config, error) {
	return resolve(raw, time.Now)
}

func resolve(raw Values, now func() time.Time) (Config, error) {
	c := Config{
		Arch:             DefaultArch,
		Priority:         DefaultPriority,
		BuildID:          now().UTC().Format(BuildIDFormat),
		WorkspaceBasedir: DefaultWorkspaceBasedir,
	}

	strs := map[string]*string{
		KeyShortName:        &c.ShortName,
		KeyVersion:          &c.Version,
		KeyArch:             &c.Arch,
		KeySection:          &c.Section,
		KeyPriority:         &c.Priority,
		KeyDescription:      &c.Description,
		KeyMaintainer:       &c.Maintainer,
		KeyPostinst:         &c.Postinst,
		KeyBuildID:          &c.BuildID,
		KeyWorkspaceBasedir: &c.WorkspaceBasedir,
	}
	lists := map[string]*[]string{
		KeyDepends: &c.Depends,
		KeyExclude: &c.Exclude,
	}

	for key, v := range raw {
		if dst, ok := strs[key]; ok {
			s, err := toString(key, v)
			if err != nil {
				return Config{}, err
			}
			*dst = s
			continue
		}
		if dst, ok := lists[key]; ok {
			l, err := toList(key, v)
			if err != nil {
				return Config{}, err
			}
			*dst = l
		}
		// sources and derived keys are recomputed below; anything else is not ours.
	}

	if c.Depends == nil {
		c.Depends = []string{}
	}
	if c.Exclude == nil {
		c.Exclude = []string{}
	}
	c.Sources = []Source{}
	c.derive()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	if c.Postinst != "" {
		c.Postinst = NormalizeScript(c.Postinst)
	}
	return c, nil
}

// derive computes FullName, VersionDir, BuildDir and PkgDir.
func (c *Config) derive() {
	c.FullName = fmt.Sprintf("%s_%s_%s", c.ShortName, c.Version, c.Arch)
	c.VersionDir = fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.WorkspaceBasedir, "/"), c.ShortName, c.Version)
	c.BuildDir = c.VersionDir + "/" + c.BuildID
	c.PkgDir = c.BuildDir + "/" + c.FullName
}

// Validate checks the required keys and the postinst shebang.
func (c Config) Validate() error {
	values := map[string]string{
		KeyArch:             c.Arch,
		KeyBuildID:          c.BuildID,
		KeyShortName:        c.ShortName,
		KeyVersion:          c.Version,
		KeyWorkspaceBasedir: c.WorkspaceBasedir,
		KeyDescription:      c.Description,
		KeyMaintainer:       c.Maintainer,
		KeySection:          c.Section,
	}
	for _, key := range RequiredKeys() {
		if strings.TrimSpace(values[key]) == "" {
			return &MissingFieldError{Field: key}
		}
	}
	if !filepath.IsAbs(c.WorkspaceBasedir) {
		return &InvalidFieldError{Field: KeyWorkspaceBasedir, Value: c.WorkspaceBasedir, Reason: "must be an absolute path"}
	}
	// These become single directory names under the workspace.
	for _, key := range []string{KeyShortName, KeyVersion, KeyArch, KeyBuildID} {
		if err := checkPathSegment(key, values[key]); err != nil {
			return err
		}
	}
	return checkShebang(c.ShortName, c.Postinst)
}

func checkPathSegment(key, value string) error {
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return &InvalidFieldError{Field: key, Value: value, Reason: "must not contain a path separator or \"..\""}
	}
	return nil
}

func checkShebang(shortName, script string) error {
	if script != "" && !strings.HasPrefix(script, "#!") {
		return &ShebangError{ShortName: shortName}
	}
	return nil
}

// NormalizeScript trims trailing whitespace from a script body and terminates it with
// exactly one newline.
func NormalizeScript(s string) string {
	return strings.TrimRight(s, " \t\r\n") + "\n"
}

// Control returns the control metadata of the package.
func (c Config) Control() deb.Control {
	return deb.Control{
		Package:      c.ShortName,
		Version:      c.Version,
		Section:      c.Section,
		Priority:     c.Priority,
		Architecture: c.Arch,
		Depends:      c.Depends,
		Maintainer:   c.Maintainer,
		Description:  strings.TrimSpace(c.Description) + "\n",
	}
}

// ArchivePath is where the packaging step leaves the .deb.
func (c Config) ArchivePath() string {
	return c.BuildDir + "/" + c.FullName + ".deb"
}

// Map returns a snapshot of the configuration in key/value form, derived keys included.
func (c Config) Map() Values {
	sources := make([]Source, len(c.Sources))
	copy(sources, c.Sources)
	return Values{
		KeyShortName:        c.ShortName,
		KeyVersion:          c.Version,
		KeyArch:             c.Arch,
		KeySection:          c.Section,
		KeyPriority:         c.Priority,
		KeyDescription:      c.Description,
		KeyMaintainer:       c.Maintainer,
		KeyDepends:          append([]string{}, c.Depends...),
		KeyExclude:          append([]string{}, c.Exclude...),
		KeyPostinst:         c.Postinst,
		KeyBuildID:          c.BuildID,
		KeyWorkspaceBasedir: c.WorkspaceBasedir,
		KeyFullName:         c.FullName,
		KeyVersionDir:       c.VersionDir,
		KeyBuildDir:         c.BuildDir,
		KeyPkgDir:           c.PkgDir,
		KeySources:          sources,
	}
}

// clone returns a deep copy of c.
func (c Config) clone() Config {
	c.Depends = append([]string{}, c.Depends...)
	c.Exclude = append([]string{}, c.Exclude...)
	c.Sources = append([]Source{}, c.Sources...)
	return c
}

func toString(key string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, uint64:
		// YAML and TOML decode bare integers such as version: 2 as numbers.
		return fmt.Sprint(t), nil
	default:
		return "", &FieldTypeError{Field: key, Value: v}
	}
}

func toList(key string, v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return deb.SplitList(t), nil
	case []string:
		return append([]string{}, t...), nil
	case []any:
		l := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, &FieldTypeError{Field: key, Value: v}
			}
			l = append(l, s)
		}
		return l, nil
	default:
		return nil, &FieldTypeError{Field: key, Value: v}
	}
}
