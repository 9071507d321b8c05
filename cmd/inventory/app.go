// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/config"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/fragment"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/inventory"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/ipdoc"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/logging"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/macgen"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App reference.
	App struct {
		Config ConfigProvider
		Fs     afero.Fs
		Now    func() time.Time
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Fs     afero.Fs
		Now    func() time.Time
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	rootFlags struct {
		root    string
		config  string
		verbose bool
		list    bool
		host    string
	}

	// session is what a command works with once configuration is loaded.
	session struct {
		cfg    *config.Config
		logger *log.Logger
	}

	// resolved is the outcome of a resolution pass. problems is nil when the
	// pass was clean.
	resolved struct {
		*session
		inv      *inventory.Inventory
		problems *inventory.ResolutionError
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &App{
		Config: deps.Config,
		Fs:     deps.Fs,
		Now:    deps.Now,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		flags:  rootFlags{root: "."},
	}
}

// loadOptions returns the config lookup derived from the global flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: a.flags.config,
		BaseDir:        a.flags.root,
		Fs:             a.Fs,
	}
}

// openSession loads configuration and installs the process logger.
func (a *App) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.Config.Load(cmd.Context(), a.loadOptions())
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), a.flags.verbose || cfg.UI.Verbose)
	logging.Install(logger)

	return &session{cfg: cfg, logger: logger}, nil
}

// resolve runs a full resolution pass over the repository.
func (a *App) resolve(cmd *cobra.Command) (*resolved, error) {
	s, err := a.openSession(cmd)
	if err != nil {
		return nil, err
	}

	set, err := fragment.NewFSLoader(a.Fs, fragmentOptions(a.flags.root, s.cfg)).Load(cmd.Context())
	if err != nil {
		return nil, err
	}

	inv, err := inventory.Build(cmd.Context(), set,
		inventory.WithFields(inventoryFields(s.cfg.Fields)),
		inventory.WithWorkers(s.cfg.Resolve.Workers),
		inventory.WithLogger(s.logger),
	)
	r := &resolved{session: s, inv: inv}
	if err != nil && !errors.As(err, &r.problems) {
		return nil, err
	}
	return r, nil
}

// path joins a configured repository path to the root unless it is absolute.
func (a *App) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.flags.root, p)
}

// reportProblems prints the numbered error report to stderr and turns a
// failed pass into exit code 2. Output already written stays valid for
// diagnostics.
func reportProblems(cmd *cobra.Command, problems *inventory.ResolutionError) error {
	if problems == nil {
		return nil
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "%s %s\n", errorIcon, ErrorStyle.Render(fmt.Sprintf("%d error(s) during inventory resolution:", len(problems.Errors))))
	fmt.Fprint(stderr, problems.Report())

	cmd.SilenceUsage = true
	return resolutionExit(problems)
}

func fragmentOptions(root string, cfg *config.Config) fragment.Options {
	opts := fragment.DefaultOptions(root)
	opts.GroupsDir = cfg.Paths.Groups
	opts.HostsDir = cfg.Paths.Hosts
	opts.UserFile = cfg.Paths.User
	return opts
}

func inventoryFields(f config.FieldsConfig) inventory.Fields {
	return inventory.Fields{
		Address:          f.Address,
		AltAddress:       f.AltAddress,
		Interfaces:       f.Interfaces,
		InterfaceAddress: f.InterfaceAddress,
		Groups:           f.Groups,
		Virtualization:   f.Virtualization,
	}
}

func ipdocFields(f config.FieldsConfig) ipdoc.Fields {
	fields := ipdoc.DefaultFields()
	fields.Address = f.Address
	fields.Interfaces = f.Interfaces
	fields.Bridges = f.Bridges
	fields.InterfaceAddress = f.InterfaceAddress
	fields.InterfaceAddresses = f.InterfaceAddresses
	fields.Virtualization = f.Virtualization
	return fields
}

func macFields(f config.FieldsConfig) macgen.Fields {
	return macgen.Fields{
		Interfaces:   f.Interfaces,
		InterfaceMAC: f.InterfaceMAC,
	}
}
