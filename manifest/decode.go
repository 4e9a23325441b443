package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

// unmarshal parses JSON, YAML or TOML based on file extension.
func unmarshal(path string, data []byte, v interface{}) error {
	ext := strings.ToLower(filepath.Ext(path))
	r := bytes.NewReader(data)
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	case ".toml":
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case ".json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		// json.Number keeps 1.10 as written.
		dec.UseNumber()
		return dec.Decode(v)
	default:
		return fmt.Errorf("unsupported definition format %q", ext)
	}
}
