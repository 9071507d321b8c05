// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/playbook"
)

// newPlaybookCommand creates the `inventory playbook` command.
func newPlaybookCommand(app *App) *cobra.Command {
	var stdout bool
	cmd := &cobra.Command{
		Use:   "playbook",
		Short: "Generate the playbook that runs every role",
		Long: `Generate one play per role found in the roles directory.

roles.yaml may place a role in the early or late phase, order it after
other roles, add target hosts and tags, or exclude hosts. Inside a phase
roles run in alphabetical order unless an "after" constraint says otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd)
			if err != nil {
				return err
			}
			gen := playbook.NewGenerator(app.Fs, playbook.Options{
				RolesDir:   app.path(s.cfg.Paths.Roles),
				ConfigFile: app.path(s.cfg.Paths.RolesConfig),
				Output:     app.path(s.cfg.Paths.Playbook),
			})

			if stdout {
				plays, err := gen.Generate(cmd.Context())
				if err != nil {
					return err
				}
				data, err := playbook.Marshal(plays)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := gen.Write(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", successIcon, app.path(s.cfg.Paths.Playbook))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the playbook instead of writing it")
	return cmd
}
