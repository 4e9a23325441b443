// Package manifest loads package definition files and turns them into stage builders.
//
// A definition is a YAML, JSON or TOML document:
//
//	defines:
//	  version: 1.4.0
//	meta:
//	  shortName: mytool
//	  version: "{{.version}}"
//	  section: utils
//	  description: My tool
//	  maintainer: Jane <jane@example.com>
//	  depends: [libc6]
//	  exclude: [.git]
//	sources:
//	  - src: build/mytool
//	    dst: /usr/bin
//	postinst_file: scripts/postinst.sh
//
// Every string is rendered as a text/template over the defines.
package manifest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/etnz/debbie/stage"
	"go.yaml.in/yaml/v3"
)

// Definition is the content of a package definition file.
type Definition struct {
	// Defines is a map of variables available to templates in this definition.
	Defines map[string]string `json:"defines" yaml:"defines" toml:"defines"`
	// Meta holds the package configuration, keyed like stage.Values (shortName, version, ...).
	Meta Meta `json:"meta" yaml:"meta" toml:"meta"`
	// Sources is the list of files and directories to copy into the package.
	Sources []Source `json:"sources" yaml:"sources" toml:"sources"`
	// Postinst is an inline post installation script.
	Postinst string `json:"postinst" yaml:"postinst" toml:"postinst"`
	// PostinstFile is a path or URL to the post installation script. It wins over Postinst.
	PostinstFile string `json:"postinst_file" yaml:"postinst_file" toml:"postinst_file"`
	// PostinstRaw disables template rendering of the post installation script.
	PostinstRaw bool `json:"postinst_raw" yaml:"postinst_raw" toml:"postinst_raw"`

	filePath string
	tmpl     *renderer
}

// Meta is the package configuration of a definition.
//
// In YAML, plain numeric scalars keep their source text, so that version: 1.10 stays
// "1.10" instead of becoming the float 1.1.
type Meta map[string]any

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Meta) UnmarshalYAML(node *yaml.Node) error {
	if node.ShortTag() == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: meta must be a mapping", node.Line)
	}
	out := make(Meta, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		v, err := literalValue(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("meta.%s: %w", key, err)
		}
		out[key] = v
	}
	*m = out
	return nil
}

func literalValue(node *yaml.Node) (any, error) {
	switch {
	case node.Kind == yaml.ScalarNode && (node.ShortTag() == "!!int" || node.ShortTag() == "!!float"):
		return node.Value, nil
	case node.Kind == yaml.SequenceNode:
		l := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := literalValue(item)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	default:
		var v any
		err := node.Decode(&v)
		return v, err
	}
}

// Source is a file or directory to copy into the package.
type Source struct {
	// Src is the path to the source, relative to the definition file or absolute.
	Src string `json:"src" yaml:"src" toml:"src"`
	// Dst is the absolute install location; empty keeps the source's own path.
	Dst string `json:"dst" yaml:"dst" toml:"dst"`
}

// Load reads a definition file. defines override the file's own defines.
func Load(path string, defines map[string]string) (*Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	var def Definition
	if err := unmarshal(path, content, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition %s: %w", path, err)
	}
	def.filePath = path
	def.tmpl = newRenderer(def.Defines).with(defines)
	return &def, nil
}

// Values renders Meta into a stage configuration.
func (d *Definition) Values() (stage.Values, error) {
	keys := make([]string, 0, len(d.Meta))
	for k := range d.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(stage.Values, len(d.Meta))
	for _, k := range keys {
		v, err := d.renderValue("meta."+k, d.Meta[k])
		if err != nil {
			return nil, fmt.Errorf("rendering meta %s: %w", k, err)
		}
		values[k] = v
	}
	return values, nil
}

func (d *Definition) renderValue(name string, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return d.tmpl.render(name, t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			r, err := d.renderValue(fmt.Sprintf("%s[%d]", name, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// StageSources renders the sources and resolves relative source paths against the
// definition file's directory.
func (d *Definition) StageSources() ([]stage.Source, error) {
	var sources []stage.Source
	for i, s := range d.Sources {
		src, err := d.tmpl.render(fmt.Sprintf("sources[%d].src", i), s.Src)
		if err != nil {
			return nil, err
		}
		dst, err := d.tmpl.render(fmt.Sprintf("sources[%d].dst", i), s.Dst)
		if err != nil {
			return nil, err
		}
		if src == "" {
			return nil, fmt.Errorf("sources[%d]: src is required", i)
		}
		abs, err := filepath.Abs(d.resolve(src))
		if err != nil {
			return nil, err
		}
		sources = append(sources, stage.Source{Src: abs, Dst: dst})
	}
	return sources, nil
}

// Script returns the rendered post installation script, or "" when none is defined.
func (d *Definition) Script() (string, error) {
	if d.PostinstFile != "" {
		path, err := d.tmpl.render("postinst_file", d.PostinstFile)
		if err != nil {
			return "", err
		}
		return d.loadResource(path, d.PostinstRaw)
	}
	if d.PostinstRaw {
		return d.Postinst, nil
	}
	return d.tmpl.render("postinst", d.Postinst)
}

// Builder creates a stage.Builder with the definition's configuration, sources and script.
// Values in overrides win over the definition's meta.
func (d *Definition) Builder(overrides stage.Values, opts ...stage.Option) (*stage.Builder, error) {
	values, err := d.Values()
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		values[k] = v
	}

	b, err := stage.New(values, opts...)
	if err != nil {
		return nil, err
	}

	sources, err := d.StageSources()
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		b.AddSource(s.Src, s.Dst)
	}

	script, err := d.Script()
	if err != nil {
		return nil, fmt.Errorf("loading postinst: %w", err)
	}
	if err := b.SetPostinst(script); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Definition) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(d.filePath), path)
}

func (d *Definition) loadResource(path string, raw bool) (string, error) {
	var content []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return "", fmt.Errorf("failed to fetch resource %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to fetch resource %s: %s", path, resp.Status)
		}

		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read resource body %s: %w", path, err)
		}
	} else {
		resolved := d.resolve(path)
		content, err = os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("reading resource %s: %w", resolved, err)
		}
	}

	if raw {
		return string(content), nil
	}
	return d.tmpl.render(path, string(content))
}
