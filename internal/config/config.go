// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/cueutil"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
)

const (
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "inventory"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: INVENTORY_PATHS_HOSTS.
	EnvPrefix = "INVENTORY"

	// maxConfigFileSize bounds the config file read into memory.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// FileName returns the config file name looked up in the repository root.
func FileName() string {
	return ConfigFileName + "." + ConfigFileExt
}

// loadWithOptions performs option-driven config loading and returns the
// path of the file that was read ("" when only defaults and environment
// applied).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	fsys := opts.fs()
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(fsys, opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'inventory config init' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %w", fs.ErrNotExist)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else if local := filepath.Join(opts.BaseDir, FileName()); fileExists(fsys, local) {
		resolvedPath = local
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(fsys, v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'inventory config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for empty or malformed values").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so environment overrides are picked up by
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("paths.groups", d.Paths.Groups)
	v.SetDefault("paths.hosts", d.Paths.Hosts)
	v.SetDefault("paths.user", d.Paths.User)
	v.SetDefault("paths.roles", d.Paths.Roles)
	v.SetDefault("paths.roles_config", d.Paths.RolesConfig)
	v.SetDefault("paths.playbook", d.Paths.Playbook)
	v.SetDefault("fields.address", d.Fields.Address)
	v.SetDefault("fields.alt_address", d.Fields.AltAddress)
	v.SetDefault("fields.interfaces", d.Fields.Interfaces)
	v.SetDefault("fields.bridges", d.Fields.Bridges)
	v.SetDefault("fields.interface_address", d.Fields.InterfaceAddress)
	v.SetDefault("fields.interface_addresses", d.Fields.InterfaceAddresses)
	v.SetDefault("fields.interface_mac", d.Fields.InterfaceMAC)
	v.SetDefault("fields.groups", d.Fields.Groups)
	v.SetDefault("fields.virtualization", d.Fields.Virtualization)
	v.SetDefault("resolve.workers", d.Resolve.Workers)
	v.SetDefault("mac.prefix", d.MAC.Prefix)
	v.SetDefault("ui.verbose", d.UI.Verbose)
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(fsys afero.Fs, v *viper.Viper, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithMaxFileSize(maxConfigFileSize),
	)
	if err != nil {
		return err
	}

	// Merge keeps defaults for omitted keys and leaves env overrides on top.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes cfg as CUE to path. An existing file is only replaced when
// overwrite is set.
func Save(fsys afero.Fs, path string, cfg *Config, overwrite bool) error {
	if !overwrite && fileExists(fsys, path) {
		return issue.NewErrorContext().
			WithOperation("write configuration").
			WithResource(path).
			WithSuggestion("Pass --force to replace the existing file").
			Wrap(fs.ErrExist).
			BuildError()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := afero.WriteFile(fsys, path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Inventory tool configuration.\n")
	sb.WriteString("// Every field is optional; environment variables prefixed with " + EnvPrefix + "_ override it.\n\n")

	sb.WriteString("paths: {\n")
	fmt.Fprintf(&sb, "\tgroups:       %q\n", cfg.Paths.Groups)
	fmt.Fprintf(&sb, "\thosts:        %q\n", cfg.Paths.Hosts)
	fmt.Fprintf(&sb, "\tuser:         %q\n", cfg.Paths.User)
	fmt.Fprintf(&sb, "\troles:        %q\n", cfg.Paths.Roles)
	fmt.Fprintf(&sb, "\troles_config: %q\n", cfg.Paths.RolesConfig)
	fmt.Fprintf(&sb, "\tplaybook:     %q\n", cfg.Paths.Playbook)
	sb.WriteString("}\n")

	sb.WriteString("\nfields: {\n")
	fmt.Fprintf(&sb, "\taddress:             %q\n", cfg.Fields.Address)
	fmt.Fprintf(&sb, "\talt_address:         %q\n", cfg.Fields.AltAddress)
	fmt.Fprintf(&sb, "\tinterfaces:          %q\n", cfg.Fields.Interfaces)
	fmt.Fprintf(&sb, "\tbridges:             %q\n", cfg.Fields.Bridges)
	fmt.Fprintf(&sb, "\tinterface_address:   %q\n", cfg.Fields.InterfaceAddress)
	fmt.Fprintf(&sb, "\tinterface_addresses: %q\n", cfg.Fields.InterfaceAddresses)
	fmt.Fprintf(&sb, "\tinterface_mac:       %q\n", cfg.Fields.InterfaceMAC)
	fmt.Fprintf(&sb, "\tgroups:              %q\n", cfg.Fields.Groups)
	fmt.Fprintf(&sb, "\tvirtualization:      %q\n", cfg.Fields.Virtualization)
	sb.WriteString("}\n")

	sb.WriteString("\nresolve: {\n")
	fmt.Fprintf(&sb, "\tworkers: %d\n", cfg.Resolve.Workers)
	sb.WriteString("}\n")

	sb.WriteString("\nmac: {\n")
	fmt.Fprintf(&sb, "\tprefix: %q\n", cfg.MAC.Prefix)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
