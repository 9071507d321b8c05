// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

// DefaultMaxFileSize caps the size of a single fragment file (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type decodeFunc func(data []byte) (any, error)

var decoders = map[string]decodeFunc{
	".yml":  decodeYAML,
	".yaml": decodeYAML,
	".toml": decodeTOML,
	".json": decodeJSON,
}

// Decode parses data according to the extension of filename and returns the
// top-level mapping. An empty document is an empty mapping.
func Decode(filename string, data []byte) (value.Map, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	dec, ok := decoders[ext]
	if !ok {
		return nil, &value.StructuralError{Reason: fmt.Sprintf("unsupported fragment format %q", ext)}
	}
	doc, err := dec(data)
	if err != nil {
		return nil, &value.StructuralError{Reason: err.Error()}
	}
	return value.MapFromAny(doc)
}

// Supported reports whether filename has an extension Decode understands.
func Supported(filename string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func decodeYAML(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return doc, nil
}

func decodeTOML(data []byte) (any, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return doc, nil
}

func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return doc, nil
}
