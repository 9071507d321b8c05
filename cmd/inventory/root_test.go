// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/inventory"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/testutil"
	"github.com/stuvusIT/ansible-config-repo-scripts/pkg/types"
)

// The tests below are not parallel: every command installs the process-wide
// default logger.

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixtureRepo(t *testing.T) afero.Fs {
	t.Helper()
	return testutil.MemRepo(t, "/repo", map[string]string{
		"groups/all.yml":    "ntp: pool.ntp.org\n",
		"groups/web.yml":    "http_port: 80\n",
		"hosts/web1.yml":    "_groups: web\ndescription: frontend\ninterfaces:\n  - ip: 10.0.0.5/24\n    mac: aa:aa:aa:aa:aa:a0\n",
		"hosts/vm1.yml":     "ansible_host: 10.0.0.9\nvm:\n  org: fsr\n",
		"roles/base/.keep":  "",
		"roles/nginx/.keep": "",
		"roles.yaml":        "base:\n  early: true\nnginx:\n  hosts: [web]\n",
	})
}

func conflictRepo(t *testing.T) afero.Fs {
	t.Helper()
	return testutil.MemRepo(t, "/repo", map[string]string{
		"groups/g1.yml":  "env: prod\n",
		"groups/g2.yml":  "env: staging\n",
		"hosts/both.yml": "_groups: [g1, g2]\nansible_host: 10.0.0.1\n",
		"hosts/lost.yml": "description: no address\n",
		"hosts/fine.yml": "ansible_host: 10.0.0.2\n",
	})
}

func runCLI(t *testing.T, fsys afero.Fs, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(Dependencies{
		Fs:     fsys,
		Now:    func() time.Time { return fixedNow },
		Stdout: &out,
		Stderr: &errOut,
	})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func exitCode(err error) types.ExitCode {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return types.ExitFailure
	}
	return types.ExitSuccess
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRoot_ListProtocol(t *testing.T) {
	stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "--list")
	if err != nil {
		t.Fatalf("--list error = %v", err)
	}

	var doc map[string]struct {
		Hosts    []string                  `json:"hosts"`
		Vars     map[string]any            `json:"vars"`
		Hostvars map[string]map[string]any `json:"hostvars"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}

	if got := strings.Join(doc["all"].Hosts, ","); got != "vm1,web1" {
		t.Errorf("all.hosts = %s", got)
	}
	if got := strings.Join(doc["web"].Hosts, ","); got != "web1" {
		t.Errorf("web.hosts = %s", got)
	}
	if got := strings.Join(doc["virtual"].Hosts, ","); got != "vm1" {
		t.Errorf("virtual.hosts = %s", got)
	}
	web1 := doc[inventory.MetaKey].Hostvars["web1"]
	if web1["ansible_host"] != "10.0.0.5" || web1["ntp"] != "pool.ntp.org" || web1["http_port"] != float64(80) {
		t.Errorf("hostvars.web1 = %v", web1)
	}
	if _, ok := web1["_groups"]; ok {
		t.Error("hostvars.web1 still carries _groups")
	}
}

func TestRoot_HostProtocol(t *testing.T) {
	stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "--host", "vm1")
	if err != nil {
		t.Fatalf("--host error = %v", err)
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(stdout), &vars); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if vars["ansible_host"] != "10.0.0.9" {
		t.Errorf("vars = %v", vars)
	}

	stdout, _, err = runCLI(t, fixtureRepo(t), "--root", "/repo", "--host", "nobody")
	if err != nil {
		t.Fatalf("--host nobody error = %v", err)
	}
	if stdout != "{}\n" {
		t.Errorf("unknown host output = %q, want {}", stdout)
	}
}

func TestRoot_NoFlagsPrintsHelp(t *testing.T) {
	stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(stdout, "inventory --list") {
		t.Errorf("help output lacks examples:\n%s", stdout)
	}
}

func TestHost_UnknownIsError(t *testing.T) {
	_, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "host", "nobody")
	if err == nil || !strings.Contains(err.Error(), `unknown host "nobody"`) {
		t.Fatalf("error = %v, want unknown host", err)
	}
}

func TestList_Formats(t *testing.T) {
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{format: "json", decode: json.Unmarshal},
		{format: "yaml", decode: yaml.Unmarshal},
		{format: "toml", decode: toml.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "list", "--format", tt.format)
			if err != nil {
				t.Fatalf("list error = %v", err)
			}
			var doc map[string]any
			if err := tt.decode([]byte(stdout), &doc); err != nil {
				t.Fatalf("decode: %v\n%s", err, stdout)
			}
			meta, ok := doc[inventory.MetaKey].(map[string]any)
			if !ok {
				t.Fatalf("_meta missing:\n%s", stdout)
			}
			hostvars, ok := meta["hostvars"].(map[string]any)
			if !ok || len(hostvars) != 2 {
				t.Errorf("hostvars = %v", meta["hostvars"])
			}
		})
	}
}

func TestList_UnknownFormat(t *testing.T) {
	_, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "list", "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), `unknown format "xml"`) {
		t.Fatalf("error = %v", err)
	}
}

func TestList_MissingRoot(t *testing.T) {
	_, _, err := runCLI(t, afero.NewMemMapFs(), "--root", "/nowhere", "--list")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}
	if exitCode(err) != types.ExitFailure {
		t.Errorf("exit code = %v, want %v", exitCode(err), types.ExitFailure)
	}
}

func TestList_ResolutionErrorsStillPrintInventory(t *testing.T) {
	stdout, stderr, err := runCLI(t, conflictRepo(t), "--root", "/repo", "--list")
	if got := exitCode(err); got != types.ExitResolution {
		t.Fatalf("exit code = %v, want %v (err %v)", got, types.ExitResolution, err)
	}

	var doc map[string]any
	if jsonErr := json.Unmarshal([]byte(stdout), &doc); jsonErr != nil {
		t.Fatalf("inventory not printed: %v\n%s", jsonErr, stdout)
	}
	for _, want := range []string{"(1) ", "(2) ", "conflicting definitions for `env`", "lost"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr lacks %q:\n%s", want, stderr)
		}
	}
	var problems *inventory.ResolutionError
	if !errors.As(err, &problems) || len(problems.Errors) != 2 {
		t.Errorf("error = %v, want two collected errors", err)
	}
}

func TestValidate(t *testing.T) {
	stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "validate")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(stdout, "no errors") || !strings.Contains(stdout, "2 host(s)") {
		t.Errorf("stdout = %s", stdout)
	}

	stdout, _, err = runCLI(t, conflictRepo(t), "--root", "/repo", "validate")
	if exitCode(err) != types.ExitResolution {
		t.Fatalf("validate error = %v, want exit 2", err)
	}
	if !strings.Contains(stdout, "2 host(s) affected") {
		t.Errorf("stdout = %s", stdout)
	}
}

func TestIPDoc(t *testing.T) {
	stdout, _, err := runCLI(t, fixtureRepo(t), "--root", "/repo", "ipdoc")
	if err != nil {
		t.Fatalf("ipdoc error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if lines[0] != "Last update 2026-01-02 03:04:05" {
		t.Errorf("first line = %q", lines[0])
	}
	if len(lines) != 6 {
		t.Fatalf("want header, separator and two rows:\n%s", stdout)
	}
	if !strings.HasPrefix(lines[4], "| 10.0.0.5 | web1") || !strings.Contains(lines[4], "| web ") {
		t.Errorf("row 1 = %q", lines[4])
	}
	if !strings.HasPrefix(lines[5], "| 10.0.0.9 | vm1") || !strings.Contains(lines[5], "| vm ") || !strings.Contains(lines[5], "fsr") {
		t.Errorf("row 2 = %q", lines[5])
	}
}

func TestIPDoc_Output(t *testing.T) {
	fsys := fixtureRepo(t)
	if _, _, err := runCLI(t, fsys, "--root", "/repo", "ipdoc", "-o", "doc/ips.md"); err != nil {
		t.Fatalf("ipdoc error = %v", err)
	}
	if got := testutil.MustReadFile(t, fsys, "/repo/doc/ips.md"); !strings.Contains(got, "10.0.0.9") {
		t.Errorf("written table = %s", got)
	}
}

func TestMAC_PicksTheOnlyFreeAddress(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("ansible_host: 10.0.0.1\ninterfaces:\n")
	for i := range 15 {
		fmt.Fprintf(&sb, "  - mac: 02:00:00:00:00:0%X\n", i)
	}
	fsys := testutil.MemRepo(t, "/repo", map[string]string{"hosts/big.yml": sb.String()})

	stdout, _, err := runCLI(t, fsys, "--root", "/repo", "mac", "--prefix", "02:00:00:00:00:0")
	if err != nil {
		t.Fatalf("mac error = %v", err)
	}
	if stdout != "02:00:00:00:00:0F\n" {
		t.Errorf("mac = %q, want 02:00:00:00:00:0F", stdout)
	}

	_, _, err = runCLI(t, fsys, "--root", "/repo", "mac", "--prefix", "02:00:00:00:00:0", "--count", "2")
	if err == nil || !strings.Contains(err.Error(), "no unused MAC address") {
		t.Errorf("second address error = %v, want exhaustion", err)
	}
}

func TestMAC_DefaultPrefixFromConfig(t *testing.T) {
	fsys := fixtureRepo(t)
	testutil.MustWriteFile(t, fsys, "/repo/inventory.cue", "mac: prefix: \"52:54:00\"\n")

	stdout, _, err := runCLI(t, fsys, "--root", "/repo", "mac", "-n", "3")
	if err != nil {
		t.Fatalf("mac error = %v", err)
	}
	lines := strings.Fields(stdout)
	if len(lines) != 3 {
		t.Fatalf("want 3 addresses, got %q", stdout)
	}
	seen := map[string]bool{}
	for _, mac := range lines {
		if !strings.HasPrefix(mac, "52:54:00:") || len(mac) != 17 || seen[mac] {
			t.Errorf("unexpected address %q in %q", mac, stdout)
		}
		seen[mac] = true
	}
}

func TestPlaybook(t *testing.T) {
	fsys := fixtureRepo(t)

	stdout, _, err := runCLI(t, fsys, "--root", "/repo", "playbook", "--stdout")
	if err != nil {
		t.Fatalf("playbook --stdout error = %v", err)
	}
	base := strings.Index(stdout, "Execute role base")
	nginx := strings.Index(stdout, "Execute role nginx")
	if base < 0 || nginx < 0 || base > nginx {
		t.Errorf("early role base must come first:\n%s", stdout)
	}

	if _, _, err := runCLI(t, fsys, "--root", "/repo", "playbook"); err != nil {
		t.Fatalf("playbook error = %v", err)
	}
	if got := testutil.MustReadFile(t, fsys, "/repo/.playbook.yaml"); got != stdout {
		t.Errorf("written playbook differs from --stdout:\n%s", got)
	}
}

func TestConfig_InitShowPath(t *testing.T) {
	fsys := fixtureRepo(t)

	stdout, _, err := runCLI(t, fsys, "--root", "/repo", "config", "path")
	if err != nil || stdout != "/repo/inventory.cue\n" {
		t.Fatalf("config path = %q, %v", stdout, err)
	}

	stdout, _, err = runCLI(t, fsys, "--root", "/repo", "config", "show")
	if err != nil || !strings.HasPrefix(stdout, "// source: (defaults)\n") {
		t.Fatalf("config show = %q, %v", stdout, err)
	}

	if _, _, err := runCLI(t, fsys, "--root", "/repo", "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, _, err := runCLI(t, fsys, "--root", "/repo", "config", "init"); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second config init error = %v, want fs.ErrExist", err)
	}
	if _, _, err := runCLI(t, fsys, "--root", "/repo", "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force error = %v", err)
	}

	stdout, _, err = runCLI(t, fsys, "--root", "/repo", "config", "show")
	if err != nil || !strings.HasPrefix(stdout, "// source: /repo/inventory.cue\n") {
		t.Fatalf("config show = %q, %v", stdout, err)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{name: "with cause", err: &ExitError{Code: types.ExitResolution, Err: cause}, want: "boom"},
		{name: "bare", err: &ExitError{Code: types.ExitFailure}, want: "exit status 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if tt.err.Err != nil && !errors.Is(tt.err, cause) {
				t.Error("errors.Is does not reach the cause")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	actionable := issue.NewErrorContext().
		WithOperation("select output format").
		WithResource("xml").
		WithSuggestion("Use one of: json, yaml, toml").
		Wrap(errors.New(`unknown format "xml"`)).
		BuildError()
	problems := &inventory.ResolutionError{Errors: []error{errors.New("a"), errors.New("b")}}

	tests := []struct {
		name    string
		err     error
		verbose bool
		want    []string
		reject  []string
	}{
		{
			name: "suggestions are shown",
			err:  actionable,
			want: []string{`failed to select output format: xml: unknown format "xml"`, "• Use one of: json, yaml, toml"},
		},
		{
			name:    "verbose adds the cause chain",
			err:     actionable,
			verbose: true,
			want:    []string{"Error chain:", `1. unknown format "xml"`},
		},
		{
			name:   "resolution failure prints only the summary",
			err:    resolutionExit(problems),
			want:   []string{"inventory resolution failed with 2 errors"},
			reject: []string{"(1)", "•"},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: []string{"boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			writeError(&buf, tt.err, tt.verbose)
			got := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output lacks %q:\n%s", want, got)
				}
			}
			for _, reject := range tt.reject {
				if strings.Contains(got, reject) {
					t.Errorf("output contains %q:\n%s", reject, got)
				}
			}
		})
	}
}

func TestErrorHandler_UsesVerboseFlag(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{})
	app.flags.verbose = true
	err := issue.NewErrorContext().WithOperation("look up host").Wrap(errors.New("missing")).BuildError()

	var buf bytes.Buffer
	errorHandler(app)(&buf, fang.Styles{}, err)
	if !strings.Contains(buf.String(), "Error chain:") {
		t.Errorf("verbose handler output lacks the cause chain:\n%s", buf.String())
	}
}
