// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/inventory"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/ipdoc"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
)

type ipdocOptions struct {
	render bool
	width  int
	output string
}

// newIPDocCommand creates the `inventory ipdoc` command.
func newIPDocCommand(app *App) *cobra.Command {
	var opts ipdocOptions
	cmd := &cobra.Command{
		Use:   "ipdoc",
		Short: "Print the address table of all hosts",
		Long: `Print a markdown table with one row per address in use: the connection
address of every host and the addresses of its interfaces and bridges.

Rows are sorted by address. When several hosts claim the same address the
alphabetically first host keeps it and a warning is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIPDoc(cmd, app, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.render, "render", false, "render the table for the terminal")
	cmd.Flags().IntVar(&opts.width, "width", 0, "wrap width of the rendered table (0 = default)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the markdown to a file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("render", "output")
	return cmd
}

func runIPDoc(cmd *cobra.Command, app *App, opts ipdocOptions) error {
	r, err := app.resolve(cmd)
	if err != nil {
		return err
	}

	rows := ipdoc.Rows(r.inv.HostVars(), ipdoc.Options{
		Fields: ipdocFields(r.cfg.Fields),
		Groups: explicitGroups(r.inv),
	})
	doc := ipdoc.Markdown(rows, app.Now())

	switch {
	case opts.output != "":
		path := app.path(opts.output)
		if err := afero.WriteFile(app.Fs, path, []byte(doc), 0o644); err != nil {
			return issue.NewErrorContext().
				WithOperation("write address table").
				WithResource(path).
				Wrap(err).
				BuildError()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d address(es) to %s\n", successIcon, len(rows), path)
	case opts.render:
		out, err := ipdoc.Render(doc, opts.width)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	default:
		fmt.Fprint(cmd.OutOrStdout(), doc)
	}
	return reportProblems(cmd, r.problems)
}

// explicitGroups returns each host's groups without the implicit ones every
// host or every VM belongs to.
func explicitGroups(inv *inventory.Inventory) map[string][]string {
	implicit := []string{inventory.GroupAll, inventory.GroupUngrouped, inventory.GroupVirtual}
	out := inv.HostGroups()
	for host, groups := range out {
		out[host] = slices.DeleteFunc(groups, func(g string) bool {
			return slices.Contains(implicit, g)
		})
	}
	return out
}
