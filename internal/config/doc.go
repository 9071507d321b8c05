// SPDX-License-Identifier: MPL-2.0

// Package config handles tool configuration using Viper with CUE as the file format.
//
// Configuration is read from inventory.cue in the repository root (or the file
// given with --config) and validated against an embedded CUE schema
// (config_schema.cue). Omitted keys keep their defaults, and INVENTORY_* environment
// variables override file values: INVENTORY_PATHS_HOSTS sets paths.hosts.
package config
