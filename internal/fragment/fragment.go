// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"context"
	"fmt"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	// ScopeGlobal applies to every host. There is exactly one, named "all".
	ScopeGlobal Scope = iota
	// ScopeGroup applies to the members of a named group.
	ScopeGroup
	// ScopeHost applies to a single host.
	ScopeHost
	// ScopeOverrides holds user-supplied values with the lowest priority.
	ScopeOverrides

	// GlobalName is the name of the global scope fragment.
	GlobalName = "all"
)

type (
	// Scope is the level a fragment applies to.
	Scope int

	// Fragment is one named unit of configuration before merging.
	Fragment struct {
		Scope Scope
		Name  string
		// Sources lists the files the fragment was read from, in merge order.
		Sources []string
		Data    value.Map
	}

	// Set is everything a resolution pass consumes.
	Set struct {
		// Groups holds group fragments; the one named "all" is the global scope.
		// Several fragments may share a name.
		Groups []Fragment
		// Hosts holds one fragment per host.
		Hosts []Fragment
		// Overrides is the user override fragment (may be empty).
		Overrides value.Map
		// Diagnostics are non-fatal problems met while loading, such as files
		// that could not be decoded. They fail the resolution pass.
		Diagnostics []error
	}

	// Loader produces a fragment Set from some backing store.
	Loader interface {
		Load(ctx context.Context) (*Set, error)
	}

	// Static is a Loader over an in-memory Set.
	Static struct {
		set Set
	}

	// FileError ties a decode problem to the file that caused it.
	FileError struct {
		File string
		Err  error
	}
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeGroup:
		return "group"
	case ScopeHost:
		return "host"
	case ScopeOverrides:
		return "overrides"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error { return e.Err }

// NewStatic returns a Loader that hands out a copy of set on every Load.
func NewStatic(set Set) *Static {
	return &Static{set: set}
}

// Load implements Loader.
func (s *Static) Load(ctx context.Context) (*Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load fragments canceled: %w", err)
	}
	out := &Set{
		Groups:      cloneFragments(s.set.Groups),
		Hosts:       cloneFragments(s.set.Hosts),
		Overrides:   s.set.Overrides.Clone(),
		Diagnostics: append([]error(nil), s.set.Diagnostics...),
	}
	return out, nil
}

// Group returns a group-scoped fragment, or the global one when name is "all".
func Group(name string, data value.Map) Fragment {
	scope := ScopeGroup
	if name == GlobalName {
		scope = ScopeGlobal
	}
	return Fragment{Scope: scope, Name: name, Data: data}
}

// Host returns a host-scoped fragment.
func Host(name string, data value.Map) Fragment {
	return Fragment{Scope: ScopeHost, Name: name, Data: data}
}

func cloneFragments(in []Fragment) []Fragment {
	if in == nil {
		return nil
	}
	out := make([]Fragment, len(in))
	for i, f := range in {
		out[i] = Fragment{
			Scope:   f.Scope,
			Name:    f.Name,
			Sources: append([]string(nil), f.Sources...),
			Data:    f.Data.Clone(),
		}
	}
	return out
}
