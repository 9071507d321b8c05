// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands of the inventory tool.
//
// The root command doubles as an Ansible dynamic inventory script
// (--list, --host NAME); subcommands expose the same resolution pass for
// humans (list, host, validate) and drive the repository generators
// (ipdoc, mac, playbook).
package cmd
