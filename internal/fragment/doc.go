// SPDX-License-Identifier: MPL-2.0

// Package fragment loads the configuration fragments an inventory is built from.
//
// A configuration repository has a groups directory and a hosts directory. A
// file directly inside one of them (`web.yml`) is a fragment named after its
// stem; a sub-directory (`web/`) is one fragment named after the directory,
// made of every matching file below it merged in lexical order. The group named
// "all" is the global scope, and an optional `user.yml` at the repository root
// supplies user overrides that apply to every host.
//
// YAML, TOML and JSON files are understood. Files that fail to decode are
// reported as diagnostics and skipped so one broken file never hides the rest
// of the repository.
package fragment
