// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/config"
)

// newConfigCommand creates the `inventory config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the tool configuration",
		Long: `Manage the tool configuration.

Configuration is read from inventory.cue in the repository root, or from
the file given with --config. Environment variables prefixed with
INVENTORY_ override single keys, e.g. INVENTORY_PATHS_HOSTS=machines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd)
			if err != nil {
				return err
			}
			source := app.configPath()
			if exists, _ := afero.Exists(app.Fs, source); !exists {
				source = "(defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "// source: %s\n", source)
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(s.cfg))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath()
			if err := config.Save(app.Fs, path, config.DefaultConfig(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", successIcon, path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), app.configPath())
			return nil
		},
	})

	return cfgCmd
}

// configPath returns the file the configuration is read from: --config, or
// inventory.cue in the repository root.
func (a *App) configPath() string {
	if a.flags.config != "" {
		return a.flags.config
	}
	return a.path(config.FileName())
}
