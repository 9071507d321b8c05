// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

// MemRepo returns an in-memory filesystem holding files, keyed by slash
// separated path relative to root.
func MemRepo(t testing.TB, root string, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	MustMkdirAll(t, fsys, root)
	for name, content := range files {
		MustWriteFile(t, fsys, filepath.Join(root, filepath.FromSlash(name)), content)
	}
	return fsys
}

// MustWriteFile writes content to path, creating parent directories.
// Leading tabs are stripped from every line so YAML can be indented in tests.
func MustWriteFile(t testing.TB, fsys afero.Fs, path, content string) {
	t.Helper()
	MustMkdirAll(t, fsys, filepath.Dir(path))
	if err := afero.WriteFile(fsys, path, []byte(Dedent(content)), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustMkdirAll creates path and its parents.
func MustMkdirAll(t testing.TB, fsys afero.Fs, path string) {
	t.Helper()
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// MustYAML parses a YAML mapping into a value.Map.
func MustYAML(t testing.TB, src string) value.Map {
	t.Helper()
	var doc any
	if err := yaml.Unmarshal([]byte(Dedent(src)), &doc); err != nil {
		t.Fatalf("invalid YAML fixture: %v", err)
	}
	m, err := value.MapFromAny(doc)
	if err != nil {
		t.Fatalf("YAML fixture is not a mapping: %v", err)
	}
	return m
}

// Dedent removes the common leading tab indentation of a Go raw string.
func Dedent(s string) string {
	s = strings.TrimPrefix(s, "\n")
	lines := strings.Split(s, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, "\t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return s
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, "\t")
		}
	}
	return strings.Join(lines, "\n")
}
