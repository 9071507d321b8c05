// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultMACPrefix is the prefix locally administered addresses are
	// allocated under.
	DefaultMACPrefix = "AA:AA:AA:AA:"

	hexDigits = "0123456789abcdefABCDEF"
)

var (
	// ErrInvalidPath is the sentinel error wrapped by InvalidPathError.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidFieldName is the sentinel error wrapped by InvalidFieldNameError.
	ErrInvalidFieldName = errors.New("invalid field name")
	// ErrInvalidWorkers is returned when resolve.workers is negative.
	ErrInvalidWorkers = errors.New("invalid worker count")
	// ErrInvalidMACPrefix is the sentinel error wrapped by InvalidMACPrefixError.
	ErrInvalidMACPrefix = errors.New("invalid MAC prefix")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// InvalidPathError is returned when a configured path is empty or
	// whitespace-only.
	InvalidPathError struct {
		Key   string
		Value string
	}

	// InvalidFieldNameError is returned when a configured fragment field name
	// is empty or contains whitespace.
	InvalidFieldNameError struct {
		Key   string
		Value string
	}

	// InvalidWorkersError is returned when the worker count is negative.
	InvalidWorkersError struct {
		Value int
	}

	// InvalidMACPrefixError is returned when the MAC prefix contains anything
	// but hex digits and colons, or more than twelve digits.
	InvalidMACPrefixError struct {
		Value string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the tool configuration.
	Config struct {
		// Paths locates the configuration repository's inputs and outputs,
		// relative to the repository root.
		Paths PathsConfig `json:"paths" mapstructure:"paths"`
		// Fields names the fragment keys with structural meaning.
		Fields FieldsConfig `json:"fields" mapstructure:"fields"`
		// Resolve tunes the resolution pass.
		Resolve ResolveConfig `json:"resolve" mapstructure:"resolve"`
		// MAC configures the hardware address allocator.
		MAC MACConfig `json:"mac" mapstructure:"mac"`
		// UI configures the command line output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// PathsConfig locates the repository layout.
	PathsConfig struct {
		Groups      string `json:"groups" mapstructure:"groups"`
		Hosts       string `json:"hosts" mapstructure:"hosts"`
		User        string `json:"user" mapstructure:"user"`
		Roles       string `json:"roles" mapstructure:"roles"`
		RolesConfig string `json:"roles_config" mapstructure:"roles_config"`
		Playbook    string `json:"playbook" mapstructure:"playbook"`
	}

	// FieldsConfig names the fragment keys the tools interpret.
	FieldsConfig struct {
		Address            string `json:"address" mapstructure:"address"`
		AltAddress         string `json:"alt_address" mapstructure:"alt_address"`
		Interfaces         string `json:"interfaces" mapstructure:"interfaces"`
		Bridges            string `json:"bridges" mapstructure:"bridges"`
		InterfaceAddress   string `json:"interface_address" mapstructure:"interface_address"`
		InterfaceAddresses string `json:"interface_addresses" mapstructure:"interface_addresses"`
		InterfaceMAC       string `json:"interface_mac" mapstructure:"interface_mac"`
		Groups             string `json:"groups" mapstructure:"groups"`
		Virtualization     string `json:"virtualization" mapstructure:"virtualization"`
	}

	// ResolveConfig tunes the resolution pass.
	ResolveConfig struct {
		// Workers bounds concurrent host resolution; 0 means GOMAXPROCS.
		Workers int `json:"workers" mapstructure:"workers"`
	}

	// MACConfig configures the hardware address allocator.
	MACConfig struct {
		Prefix string `json:"prefix" mapstructure:"prefix"`
	}

	// UIConfig configures the command line output.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidPathError.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q for paths.%s: must be non-empty", e.Value, e.Key)
}

// Unwrap returns ErrInvalidPath for errors.Is() compatibility.
func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// Error implements the error interface for InvalidFieldNameError.
func (e *InvalidFieldNameError) Error() string {
	return fmt.Sprintf("invalid field name %q for fields.%s: must be non-empty without whitespace", e.Value, e.Key)
}

// Unwrap returns ErrInvalidFieldName for errors.Is() compatibility.
func (e *InvalidFieldNameError) Unwrap() error { return ErrInvalidFieldName }

// Error implements the error interface for InvalidWorkersError.
func (e *InvalidWorkersError) Error() string {
	return fmt.Sprintf("invalid worker count %d: must be zero (automatic) or positive", e.Value)
}

// Unwrap returns ErrInvalidWorkers for errors.Is() compatibility.
func (e *InvalidWorkersError) Unwrap() error { return ErrInvalidWorkers }

// Error implements the error interface for InvalidMACPrefixError.
func (e *InvalidMACPrefixError) Error() string {
	return fmt.Sprintf("invalid MAC prefix %q: expected up to twelve hex digits, optionally colon separated", e.Value)
}

// Unwrap returns ErrInvalidMACPrefix for errors.Is() compatibility.
func (e *InvalidMACPrefixError) Unwrap() error { return ErrInvalidMACPrefix }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether every path is set.
func (c PathsConfig) IsValid() (bool, []error) {
	var errs []error
	for _, p := range []struct{ key, value string }{
		{"groups", c.Groups},
		{"hosts", c.Hosts},
		{"user", c.User},
		{"roles", c.Roles},
		{"roles_config", c.RolesConfig},
		{"playbook", c.Playbook},
	} {
		if strings.TrimSpace(p.value) == "" {
			errs = append(errs, &InvalidPathError{Key: p.key, Value: p.value})
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether every field name is a usable mapping key.
func (c FieldsConfig) IsValid() (bool, []error) {
	var errs []error
	for _, f := range []struct{ key, value string }{
		{"address", c.Address},
		{"alt_address", c.AltAddress},
		{"interfaces", c.Interfaces},
		{"bridges", c.Bridges},
		{"interface_address", c.InterfaceAddress},
		{"interface_addresses", c.InterfaceAddresses},
		{"interface_mac", c.InterfaceMAC},
		{"groups", c.Groups},
		{"virtualization", c.Virtualization},
	} {
		if f.value == "" || strings.ContainsAny(f.value, " \t\r\n") {
			errs = append(errs, &InvalidFieldNameError{Key: f.key, Value: f.value})
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the worker count is usable.
func (c ResolveConfig) IsValid() (bool, []error) {
	if c.Workers < 0 {
		return false, []error{&InvalidWorkersError{Value: c.Workers}}
	}
	return true, nil
}

// IsValid returns whether the prefix consists of at most twelve hex digits
// with optional colons.
func (c MACConfig) IsValid() (bool, []error) {
	digits := 0
	for _, r := range c.Prefix {
		switch {
		case r == ':':
		case strings.ContainsRune(hexDigits, r):
			digits++
		default:
			return false, []error{&InvalidMACPrefixError{Value: c.Prefix}}
		}
	}
	if digits > 12 {
		return false, []error{&InvalidMACPrefixError{Value: c.Prefix}}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields.
// UI has only bool fields and needs no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Paths.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Fields.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Resolve.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.MAC.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration, matching the layout of
// the stuvus configuration repository.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Groups:      "groups",
			Hosts:       "hosts",
			User:        "user.yml",
			Roles:       "roles",
			RolesConfig: "roles.yaml",
			Playbook:    ".playbook.yaml",
		},
		Fields: FieldsConfig{
			Address:            "ansible_host",
			AltAddress:         "stuvus_host",
			Interfaces:         "interfaces",
			Bridges:            "bridges",
			InterfaceAddress:   "ip",
			InterfaceAddresses: "ips",
			InterfaceMAC:       "mac",
			Groups:             "_groups",
			Virtualization:     "vm",
		},
		Resolve: ResolveConfig{Workers: 0},
		MAC:     MACConfig{Prefix: DefaultMACPrefix},
		UI:      UIConfig{Verbose: false},
	}
}
