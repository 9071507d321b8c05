// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"slices"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/merge"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	// GroupAll contains every host; its variables are the global scope.
	GroupAll = "all"
	// GroupUngrouped contains hosts that name no group of their own.
	GroupUngrouped = "ungrouped"
	// GroupVirtual contains hosts that declare a virtualization block.
	GroupVirtual = "virtual"
)

// implicitGroups exist in every inventory, even without members.
var implicitGroups = []string{GroupAll, GroupUngrouped, GroupVirtual}

type (
	// Group is a named set of hosts with shared variables.
	Group struct {
		Name  string
		Hosts []string
		Vars  value.Map
	}

	// Registry tracks every group that was declared or referenced.
	Registry struct {
		groups map[string]*Group
	}
)

// NewRegistry returns a registry holding the implicit groups.
func NewRegistry() *Registry {
	r := &Registry{groups: make(map[string]*Group)}
	for _, name := range implicitGroups {
		r.Ensure(name)
	}
	return r
}

// Ensure returns the group called name, creating it empty when unknown.
func (r *Registry) Ensure(name string) *Group {
	g, ok := r.groups[name]
	if !ok {
		g = &Group{Name: name, Hosts: []string{}, Vars: value.Map{}}
		r.groups[name] = g
	}
	return g
}

// AddVars folds a group fragment into the group's variables. Fragments of
// the same group are co-authored, so later ones overwrite earlier values.
func (r *Registry) AddVars(name string, vars value.Map) {
	g := r.Ensure(name)
	g.Vars, _ = merge.Maps(g.Vars, vars, merge.Overwrite)
}

// Vars returns the variables of a group, or an empty mapping for a group
// nobody declared. The result must not be modified.
func (r *Registry) Vars(name string) value.Map {
	if g, ok := r.groups[name]; ok {
		return g.Vars
	}
	return value.Map{}
}

// AddMember appends host to the group's member list, creating the group if
// needed. Adding a member twice is a no-op.
func (r *Registry) AddMember(group, host string) {
	g := r.Ensure(group)
	if slices.Contains(g.Hosts, host) {
		return
	}
	g.Hosts = append(g.Hosts, host)
}

// Lookup returns the group called name.
func (r *Registry) Lookup(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Names returns all group names in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.groups))
	for name := range r.groups {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
