package manifest

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// renderer expands the text/template syntax found in definition fields (meta values,
// source paths, postinst scripts) against the definition's variables.
//
// Templates get the sprig function library, e.g.
//
//	version: '{{ .version | replace "-" "~" }}'
type renderer struct {
	vars  map[string]string
	funcs template.FuncMap
}

func newRenderer(vars map[string]string) *renderer {
	r := &renderer{
		vars:  make(map[string]string, len(vars)),
		funcs: sprig.TxtFuncMap(),
	}
	for k, v := range vars {
		r.vars[k] = v
	}
	return r
}

// with returns a renderer whose variables are r's overridden by overrides. r is unchanged.
func (r *renderer) with(overrides map[string]string) *renderer {
	child := newRenderer(r.vars)
	child.funcs = r.funcs
	for k, v := range overrides {
		child.vars[k] = v
	}
	return child
}

// render expands field. Text without "{{" is returned untouched, and a reference to an
// undefined variable is an error rather than "<no value>".
func (r *renderer) render(field, text string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := template.New(field).Funcs(r.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := t.Execute(&out, r.vars); err != nil {
		return "", err
	}
	return out.String(), nil
}
