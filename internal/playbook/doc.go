// SPDX-License-Identifier: MPL-2.0

// Package playbook generates the site playbook that applies every role of the
// configuration repository.
//
// Roles are the directories below the roles directory. roles.yaml may assign
// a role to the early or late phase, order it after other roles, extend the
// hosts it targets and exclude groups from it. Each role becomes one play
// targeting the group named after the role.
package playbook
