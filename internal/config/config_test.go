// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/testutil"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if valid, errs := cfg.IsValid(); !valid {
		t.Fatalf("default config is invalid: %v", errs)
	}
	if cfg.Paths.Hosts != "hosts" || cfg.Paths.Groups != "groups" || cfg.Paths.User != "user.yml" {
		t.Errorf("unexpected default paths: %+v", cfg.Paths)
	}
	if cfg.Fields.Groups != "_groups" || cfg.Fields.Address != "ansible_host" {
		t.Errorf("unexpected default fields: %+v", cfg.Fields)
	}
	if cfg.MAC.Prefix != DefaultMACPrefix {
		t.Errorf("MAC prefix = %q, want %q", cfg.MAC.Prefix, DefaultMACPrefix)
	}
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	cfg, path, err := LoadWithSource(context.Background(), LoadOptions{BaseDir: "/repo", Fs: fsys})
	if err != nil {
		t.Fatalf("LoadWithSource() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_FromBaseDir(t *testing.T) {
	t.Parallel()

	fsys := testutil.MemRepo(t, "/repo", map[string]string{
		"inventory.cue": `
paths: hosts: "machines"
resolve: workers: 4
mac: prefix: "02:00:"
`,
	})
	cfg, path, err := LoadWithSource(context.Background(), LoadOptions{BaseDir: "/repo", Fs: fsys})
	if err != nil {
		t.Fatalf("LoadWithSource() error = %v", err)
	}
	if path != "/repo/inventory.cue" {
		t.Errorf("path = %q", path)
	}
	if cfg.Paths.Hosts != "machines" {
		t.Errorf("paths.hosts = %q, want machines", cfg.Paths.Hosts)
	}
	if cfg.Paths.Groups != "groups" {
		t.Errorf("paths.groups = %q, want the default", cfg.Paths.Groups)
	}
	if cfg.Resolve.Workers != 4 {
		t.Errorf("resolve.workers = %d, want 4", cfg.Resolve.Workers)
	}
	if cfg.MAC.Prefix != "02:00:" {
		t.Errorf("mac.prefix = %q", cfg.MAC.Prefix)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "negative workers", content: "resolve: workers: -1\n"},
		{name: "unknown key", content: "colour: \"blue\"\n"},
		{name: "whitespace field name", content: "fields: groups: \"my groups\"\n"},
		{name: "empty path", content: "paths: hosts: \"\"\n"},
		{name: "non-hex prefix", content: "mac: prefix: \"ZZ:\"\n"},
		{name: "syntax error", content: "paths: {\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := testutil.MemRepo(t, "/repo", map[string]string{"inventory.cue": tt.content})
			_, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: "/repo", Fs: fsys})
			if err == nil {
				t.Fatal("Load() succeeded, want a schema error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %T, want *issue.ActionableError", err)
			}
			if ae.Resource != "/repo/inventory.cue" || !ae.HasSuggestions() {
				t.Errorf("error lacks context: %s", ae.Format(false))
			}
		})
	}
}

func TestLoad_CustomPathNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: "/nowhere/inventory.cue",
		Fs:             afero.NewMemMapFs(),
	})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoad_CustomPathWinsOverBaseDir(t *testing.T) {
	t.Parallel()

	fsys := testutil.MemRepo(t, "/", map[string]string{
		"repo/inventory.cue": "paths: hosts: \"local\"\n",
		"etc/custom.cue":     "paths: hosts: \"custom\"\n",
	})
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: "/etc/custom.cue",
		BaseDir:        "/repo",
		Fs:             fsys,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.Hosts != "custom" {
		t.Errorf("paths.hosts = %q, want custom", cfg.Paths.Hosts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INVENTORY_PATHS_HOSTS", "nodes")
	t.Setenv("INVENTORY_UI_VERBOSE", "true")

	fsys := testutil.MemRepo(t, "/repo", map[string]string{"inventory.cue": "paths: hosts: \"machines\"\n"})
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: "/repo", Fs: fsys})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.Hosts != "nodes" {
		t.Errorf("paths.hosts = %q, want the environment value", cfg.Paths.Hosts)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose not overridden")
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("INVENTORY_RESOLVE_WORKERS", "-3")

	_, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: "/repo", Fs: afero.NewMemMapFs()})
	if !errors.Is(err, ErrInvalidWorkers) {
		t.Fatalf("Load() error = %v, want ErrInvalidWorkers", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{Fs: afero.NewMemMapFs()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	want := DefaultConfig()
	want.Paths.Hosts = "machines"
	want.Resolve.Workers = 2
	want.UI.Verbose = true

	if err := Save(fsys, "/repo/inventory.cue", want, false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: "/repo", Fs: fsys})
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, testutil.MustReadFile(t, fsys, "/repo/inventory.cue"))
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestSave_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	fsys := testutil.MemRepo(t, "/repo", map[string]string{"inventory.cue": "// mine\n"})
	err := Save(fsys, "/repo/inventory.cue", DefaultConfig(), false)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("Save() error = %v, want fs.ErrExist", err)
	}
	if got := testutil.MustReadFile(t, fsys, "/repo/inventory.cue"); got != "// mine\n" {
		t.Errorf("file was replaced: %q", got)
	}
	if err := Save(fsys, "/repo/inventory.cue", DefaultConfig(), true); err != nil {
		t.Fatalf("Save(overwrite) error = %v", err)
	}
}

func TestGenerateCUE_ContainsEverySection(t *testing.T) {
	t.Parallel()

	out := GenerateCUE(DefaultConfig())
	for _, section := range []string{"paths: {", "fields: {", "resolve: {", "mac: {", "ui: {"} {
		if !strings.Contains(out, section) {
			t.Errorf("GenerateCUE() lacks %q:\n%s", section, out)
		}
	}
}
