// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newValidateCommand creates the `inventory validate` command.
func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve every host and report all errors",
		Long: `Resolve every host and report all errors at once: merge conflicts
between groups, hosts without a derivable address, malformed group lists
and unreadable fragment files.

Exits with status 2 when any error was found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, app)
		},
	}
}

func runValidate(cmd *cobra.Command, app *App) error {
	r, err := app.resolve(cmd)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintln(stdout, TitleStyle.Render("Inventory Validation"))
	fmt.Fprintf(stdout, "Root: %s\n", KeyStyle.Render(app.flags.root))
	fmt.Fprintf(stdout, "%d group(s), %d host(s)\n", len(r.inv.GroupNames()), len(r.inv.HostNames()))

	if r.problems == nil {
		fmt.Fprintf(stdout, "%s %s\n", successIcon, SuccessStyle.Render("no errors"))
		return nil
	}

	if hosts := r.problems.Hosts(); len(hosts) > 0 {
		fmt.Fprintf(stdout, "%s %d host(s) affected:", WarningStyle.Render("!"), len(hosts))
		for _, h := range hosts {
			fmt.Fprintf(stdout, " %s", KeyStyle.Render(h))
		}
		fmt.Fprintln(stdout)
	}
	return reportProblems(cmd, r.problems)
}
