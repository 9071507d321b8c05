// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/macgen"
)

type macOptions struct {
	prefix string
	count  int
}

// newMACCommand creates the `inventory mac` command.
func newMACCommand(app *App) *cobra.Command {
	var opts macOptions
	cmd := &cobra.Command{
		Use:   "mac",
		Short: "Generate hardware addresses not used by any host",
		Long: `Generate hardware addresses that no interface of any host uses yet.

The prefix defaults to mac.prefix from inventory.cue. Colons in the prefix
are optional; a prefix of twelve or more hex digits is printed as is.`,
		Example: `  inventory mac
  inventory mac --prefix 52:54:00 --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMAC(cmd, app, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.prefix, "prefix", "p", "", "address prefix (default from mac.prefix)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, "number of addresses to generate")
	return cmd
}

func runMAC(cmd *cobra.Command, app *App, opts macOptions) error {
	if opts.count < 1 {
		return issue.NewErrorContext().
			WithOperation("generate MAC addresses").
			WithSuggestion("Pass --count 1 or more").
			Wrap(fmt.Errorf("invalid count %d", opts.count)).
			BuildError()
	}
	r, err := app.resolve(cmd)
	if err != nil {
		return err
	}

	prefix := opts.prefix
	if !cmd.Flags().Changed("prefix") {
		prefix = r.cfg.MAC.Prefix
	}

	alloc := macgen.New(macgen.UsedMACs(r.inv.HostVars(), macFields(r.cfg.Fields)))
	for range opts.count {
		mac, err := alloc.Next(prefix)
		if err != nil {
			ec := issue.NewErrorContext().
				WithOperation("generate MAC address").
				WithResource(prefix)
			if errors.Is(err, macgen.ErrExhausted) {
				ec = ec.WithSuggestion("Use a shorter prefix")
			} else {
				ec = ec.WithSuggestion("Use hex digits, optionally separated by colons")
			}
			return ec.Wrap(err).BuildError()
		}
		fmt.Fprintln(cmd.OutOrStdout(), mac)
	}
	return reportProblems(cmd, r.problems)
}
