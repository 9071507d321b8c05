// SPDX-License-Identifier: MPL-2.0

package playbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/dag"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
)

const (
	// PhaseEarly roles run before all others.
	PhaseEarly Phase = iota
	// PhaseNormal is the default phase.
	PhaseNormal
	// PhaseLate roles run after all others.
	PhaseLate
)

var (
	// ErrConflictingPhases is returned for a role marked both early and late.
	ErrConflictingPhases = errors.New("role is both early and late")
	// ErrInvalidAfter is the sentinel error wrapped by AfterError.
	ErrInvalidAfter = errors.New("invalid after relation")
)

type (
	// Phase groups roles that are ordered among themselves.
	Phase int

	// RoleConfig is the roles.yaml entry of one role.
	RoleConfig struct {
		Early    bool     `yaml:"early"`
		Late     bool     `yaml:"late"`
		After    []string `yaml:"after"`
		Hosts    []string `yaml:"hosts"`
		Tags     []string `yaml:"tags"`
		Excludes []string `yaml:"excludes"`
	}

	// Config is the content of roles.yaml, keyed by role name.
	Config map[string]RoleConfig

	// PhaseError reports a role with contradicting phase flags.
	PhaseError struct {
		Role string
	}

	// AfterError reports an "after" relation that cannot be satisfied.
	AfterError struct {
		Role   string
		Target string
		Reason string
	}

	// Play is one entry of the generated playbook.
	Play struct {
		Name        string   `yaml:"name"`
		Hosts       []string `yaml:"hosts"`
		Become      bool     `yaml:"become"`
		Roles       []string `yaml:"roles"`
		GatherFacts bool     `yaml:"gather_facts"`
		Tags        []string `yaml:"tags"`
		PreTasks    []Task   `yaml:"pre_tasks"`
	}

	// Task is a pre-task of a play.
	Task struct {
		Name  string         `yaml:"name"`
		Setup map[string]any `yaml:"setup"`
		When  string         `yaml:"when"`
	}

	// Options locates the generator's inputs and output.
	Options struct {
		RolesDir   string
		ConfigFile string
		Output     string
	}

	// Generator produces the playbook from a repository on fsys.
	Generator struct {
		fs   afero.Fs
		opts Options
	}
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEarly:
		return "early"
	case PhaseNormal:
		return "normal"
	case PhaseLate:
		return "late"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("role %s has both early and late set", e.Role)
}

// Unwrap returns ErrConflictingPhases for errors.Is compatibility.
func (e *PhaseError) Unwrap() error { return ErrConflictingPhases }

// Error implements the error interface.
func (e *AfterError) Error() string {
	return fmt.Sprintf("role %s cannot run after %s: %s", e.Role, e.Target, e.Reason)
}

// Unwrap returns ErrInvalidAfter for errors.Is compatibility.
func (e *AfterError) Unwrap() error { return ErrInvalidAfter }

// Phase returns the phase of the role.
func (c RoleConfig) Phase() Phase {
	switch {
	case c.Early:
		return PhaseEarly
	case c.Late:
		return PhaseLate
	default:
		return PhaseNormal
	}
}

// ParseConfig decodes roles.yaml. An empty document is an empty Config.
func ParseConfig(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode roles config: %w", err)
	}
	return cfg, nil
}

// Order returns roles in execution order: phase by phase, and inside a phase
// every role after the roles it names in "after", ties broken lexically.
func Order(roles []string, cfg Config) ([]string, error) {
	phaseOf := make(map[string]Phase, len(roles))
	var errs []error
	for _, role := range roles {
		rc := cfg[role]
		if rc.Early && rc.Late {
			errs = append(errs, &PhaseError{Role: role})
		}
		phaseOf[role] = rc.Phase()
	}

	graphs := map[Phase]*dag.Graph{PhaseEarly: dag.New(), PhaseNormal: dag.New(), PhaseLate: dag.New()}
	for _, role := range roles {
		phase := phaseOf[role]
		graphs[phase].AddNode(role)
		for _, target := range cfg[role].After {
			targetPhase, known := phaseOf[target]
			switch {
			case !known:
				errs = append(errs, &AfterError{Role: role, Target: target, Reason: "no such role"})
			case targetPhase > phase:
				errs = append(errs, &AfterError{
					Role:   role,
					Target: target,
					Reason: fmt.Sprintf("%s runs in the later %s phase", target, targetPhase),
				})
			case targetPhase == phase:
				graphs[phase].AddEdge(target, role)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	order := make([]string, 0, len(roles))
	for _, phase := range []Phase{PhaseEarly, PhaseNormal, PhaseLate} {
		sorted, err := graphs[phase].TopologicalSort()
		if err != nil {
			return nil, fmt.Errorf("%s phase: %w", phase, err)
		}
		order = append(order, sorted...)
	}
	return order, nil
}

// RolePlay returns the play executing role.
func RolePlay(role string, rc RoleConfig) Play {
	hosts := append([]string{role}, rc.Hosts...)
	if slices.Contains(hosts, "all") {
		hosts = []string{"all"}
	}
	for _, e := range rc.Excludes {
		hosts = append(hosts, "!"+e)
	}
	return Play{
		Name:        "Execute role " + role,
		Hosts:       hosts,
		Become:      true,
		Roles:       []string{role},
		GatherFacts: false,
		Tags:        append([]string{"_" + role}, rc.Tags...),
		PreTasks: []Task{{
			Name:  "Gather facts",
			Setup: map[string]any{},
			When:  "not ansible_facts",
		}},
	}
}

// Build orders roles and turns each into a play.
func Build(roles []string, cfg Config) ([]Play, error) {
	order, err := Order(roles, cfg)
	if err != nil {
		return nil, err
	}
	plays := make([]Play, 0, len(order))
	for _, role := range order {
		plays = append(plays, RolePlay(role, cfg[role]))
	}
	return plays, nil
}

// Marshal encodes plays as a YAML document.
func Marshal(plays []Play) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(plays); err != nil {
		return nil, fmt.Errorf("encode playbook: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode playbook: %w", err)
	}
	return buf.Bytes(), nil
}

// NewGenerator creates a generator reading and writing through fsys.
func NewGenerator(fsys afero.Fs, opts Options) *Generator {
	return &Generator{fs: fsys, opts: opts}
}

// Generate reads the roles directory and roles.yaml and returns the plays.
func (g *Generator) Generate(ctx context.Context) ([]Play, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate playbook canceled: %w", err)
	}
	roles, err := g.roles()
	if err != nil {
		return nil, err
	}
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	slog.Debug("ordering roles", "roles", len(roles), "configured", len(cfg))
	return Build(roles, cfg)
}

// Write generates the playbook and writes it to the output file.
func (g *Generator) Write(ctx context.Context) error {
	plays, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	data, err := Marshal(plays)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(g.fs, g.opts.Output, data, 0o644); err != nil {
		return issue.NewErrorContext().
			WithOperation("write playbook").
			WithResource(g.opts.Output).
			Wrap(err).
			BuildError()
	}
	return nil
}

// roles returns the role directory names in lexical order.
func (g *Generator) roles() ([]string, error) {
	entries, err := afero.ReadDir(g.fs, g.opts.RolesDir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("list roles").
			WithResource(g.opts.RolesDir).
			WithSuggestion("Run the command from the repository root or pass --root").
			Wrap(err).
			BuildError()
	}
	var roles []string
	for _, e := range entries {
		if e.IsDir() {
			roles = append(roles, e.Name())
		}
	}
	slices.Sort(roles)
	return roles, nil
}

// config reads roles.yaml; a missing file configures nothing.
func (g *Generator) config() (Config, error) {
	data, err := afero.ReadFile(g.fs, g.opts.ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no roles config", "path", g.opts.ConfigFile)
		return Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roles config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load roles config").
			WithResource(g.opts.ConfigFile).
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}
