// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Resolve the Ansible inventory of a configuration repository",
		Long: TitleStyle.Render("inventory") + SubtitleStyle.Render(" - hierarchical configuration merge for Ansible") + `

Group and host fragments from groups/ and hosts/ are merged into one
configuration per host. Global variables (group "all") have the lowest
priority, followed by the host's groups and finally the host itself.
Two groups that disagree on a value are reported as a conflict.

Called with --list or --host the command behaves as an Ansible dynamic
inventory script.

` + SubtitleStyle.Render("Examples:") + `
  inventory --list               Print the inventory for ansible
  inventory host web1            Show the merged configuration of web1
  inventory validate             Report every resolution error
  inventory ipdoc --render       Show the address table
  inventory playbook             Regenerate the role playbook`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case app.flags.list:
				return runList(cmd, app, listOptions{format: formatJSON})
			case cmd.Flags().Changed("host"):
				return runHost(cmd, app, app.flags.host, listOptions{format: formatJSON}, false)
			default:
				return cmd.Help()
			}
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().StringVarP(&app.flags.root, "root", "C", ".", "configuration repository root")
	rootCmd.PersistentFlags().StringVar(&app.flags.config, "config", "", "config file (default is <root>/inventory.cue)")
	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging on stderr")
	rootCmd.Flags().BoolVar(&app.flags.list, "list", false, "print the whole inventory as JSON (Ansible protocol)")
	rootCmd.Flags().StringVar(&app.flags.host, "host", "", "print one host's variables as JSON (Ansible protocol)")
	rootCmd.MarkFlagsMutuallyExclusive("list", "host")

	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newHostCommand(app))
	rootCmd.AddCommand(newValidateCommand(app))
	rootCmd.AddCommand(newIPDocCommand(app))
	rootCmd.AddCommand(newMACCommand(app))
	rootCmd.AddCommand(newPlaybookCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// Execute runs the CLI and exits with the code of the failure, if any.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(app)),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
