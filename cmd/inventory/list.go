// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

var formats = []string{formatJSON, formatYAML, formatTOML}

// listOptions selects how a document is written to stdout.
type listOptions struct {
	format string
	pretty bool
}

func (o *listOptions) register(cmd *cobra.Command, pretty bool) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatJSON, "output format: json, yaml or toml")
	cmd.Flags().BoolVar(&o.pretty, "pretty", pretty, "indent JSON output")
}

func (o listOptions) validate() error {
	if slices.Contains(formats, o.format) {
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("select output format").
		WithResource(o.format).
		WithSuggestion("Use one of: json, yaml, toml").
		Wrap(fmt.Errorf("unknown format %q", o.format)).
		BuildError()
}

// encode writes doc in the selected format. JSON output ends without a
// newline; the caller adds one.
func (o listOptions) encode(doc any) ([]byte, error) {
	switch o.format {
	case formatYAML:
		return yaml.Marshal(doc)
	case formatTOML:
		return toml.Marshal(doc)
	default:
		if o.pretty {
			return json.MarshalIndent(doc, "", "  ")
		}
		return json.Marshal(doc)
	}
}

func newListCommand(app *App) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the resolved inventory",
		Long: `Print the resolved inventory: every group with its hosts and variables,
and the merged configuration of every host under _meta.hostvars.

The document is printed even when resolution reports errors; the command
then exits with status 2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, app, opts)
		},
	}
	opts.register(cmd, false)
	return cmd
}

func newHostCommand(app *App) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "host <name>",
		Short: "Print the merged configuration of one host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, app, args[0], opts, true)
		},
	}
	opts.register(cmd, true)
	return cmd
}

func runList(cmd *cobra.Command, app *App, opts listOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	r, err := app.resolve(cmd)
	if err != nil {
		return err
	}
	if err := writeDocument(cmd, opts, r.inv.ToAny()); err != nil {
		return err
	}
	return reportProblems(cmd, r.problems)
}

// runHost prints one host's variables. An unknown host is an error when
// strict is set; the Ansible protocol expects an empty object instead.
func runHost(cmd *cobra.Command, app *App, name string, opts listOptions, strict bool) error {
	if err := opts.validate(); err != nil {
		return err
	}
	r, err := app.resolve(cmd)
	if err != nil {
		return err
	}

	vars := value.Map{}
	if h, ok := r.inv.Host(name); ok {
		vars = h.Vars
	} else if strict {
		return issue.NewErrorContext().
			WithOperation("look up host").
			WithResource(name).
			WithSuggestion("Run 'inventory list' to see every known host").
			WithSuggestion("Host fragments live in " + app.path(r.cfg.Paths.Hosts)).
			Wrap(fmt.Errorf("unknown host %q", name)).
			BuildError()
	}

	if err := writeDocument(cmd, opts, vars.ToAny()); err != nil {
		return err
	}
	return reportProblems(cmd, r.problems)
}

func writeDocument(cmd *cobra.Command, opts listOptions, doc any) error {
	data, err := opts.encode(doc)
	if err != nil {
		return issue.WrapWithOperation(err, "encode "+opts.format)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
