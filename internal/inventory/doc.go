// SPDX-License-Identifier: MPL-2.0

// Package inventory resolves configuration fragments into an Ansible inventory.
//
// A resolution pass runs in three stages:
//
//  1. Every group fragment is folded into the Registry (same-name fragments
//     merge in overwrite mode). The group "all" is the global scope.
//  2. Every host is resolved independently by the Resolver: its connection
//     address and group set are derived from its own fragment, the variables
//     of its groups are merged strictly into a group candidate (two groups that
//     disagree on a value are an error), and finally user overrides, the global
//     scope, the group candidate and the host fragment are layered in that
//     priority, the host winning.
//  3. Group memberships are recorded and the Inventory is assembled.
//
// Problems never stop the pass. Each one is recorded in an ErrorSet that names
// the host it belongs to; the Inventory is always built, and Build reports a
// *ResolutionError when anything went wrong so callers can refuse to deploy it.
package inventory
