// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/fragment"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/merge"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

// MetaKey is the top-level key that holds per-host variables in the Ansible
// dynamic inventory format.
const MetaKey = "_meta"

type (
	// Host is a resolved host.
	Host struct {
		Name    string
		Address string
		Groups  []string
		Vars    value.Map
	}

	// Inventory is the result of a resolution pass. It is read-only.
	Inventory struct {
		groups map[string]*Group
		hosts  map[string]*Host
	}

	// Option configures Build.
	Option func(*buildOptions)

	buildOptions struct {
		fields  Fields
		workers int
		logger  *log.Logger
	}
)

// WithFields overrides the fragment field names.
func WithFields(f Fields) Option {
	return func(o *buildOptions) { o.fields = f }
}

// WithWorkers bounds the number of hosts resolved concurrently. Zero or less
// means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *buildOptions) { o.workers = n }
}

// WithLogger sets the logger for per-host debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// Build runs a resolution pass over set. The Inventory is returned whenever
// the pass completed, even if the returned error is a *ResolutionError; any
// other error (cancellation) comes with a nil Inventory.
func Build(ctx context.Context, set *fragment.Set, opts ...Option) (*Inventory, error) {
	o := buildOptions{fields: DefaultFields(), logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	errs := &ErrorSet{}
	errs.Add(set.Diagnostics...)

	registry := NewRegistry()
	for _, g := range set.Groups {
		if g.Name == MetaKey {
			errs.Add(&value.StructuralError{Path: g.Name, Reason: "group name is reserved for host variables"})
			continue
		}
		registry.AddVars(g.Name, g.Data)
	}

	hosts := collectHosts(set.Hosts)
	names := slices.Sorted(maps.Keys(hosts))

	resolver := NewResolver(registry, set.Overrides, o.fields)
	results := make([]*Resolution, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = resolver.Resolve(name, hosts[name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve hosts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve hosts: %w", err)
	}

	inv := &Inventory{hosts: make(map[string]*Host, len(results))}
	for _, res := range results {
		errs.AddHost(res.Host, res.Errors)
		for _, group := range res.Groups {
			registry.AddMember(group, res.Host)
		}
		inv.hosts[res.Host] = &Host{
			Name:    res.Host,
			Address: res.Address,
			Groups:  res.Groups,
			Vars:    res.Config,
		}
		o.logger.Debug("resolved host", "host", res.Host, "address", res.Address, "groups", res.Groups, "errors", len(res.Errors))
	}
	inv.groups = registry.groups

	o.logger.Debug("inventory built", "hosts", len(inv.hosts), "groups", len(inv.groups), "errors", errs.Len())
	return inv, errs.Err()
}

// collectHosts indexes host fragments by name. Several fragments for the same
// host are merged in overwrite mode, like the files of a host directory.
func collectHosts(fragments []fragment.Fragment) map[string]value.Map {
	out := make(map[string]value.Map, len(fragments))
	for _, f := range fragments {
		if prev, ok := out[f.Name]; ok {
			out[f.Name], _ = merge.Maps(prev, f.Data, merge.Overwrite)
			continue
		}
		out[f.Name] = f.Data
	}
	return out
}

// GroupNames returns every group name in lexical order.
func (inv *Inventory) GroupNames() []string {
	return slices.Sorted(maps.Keys(inv.groups))
}

// Group returns the named group.
func (inv *Inventory) Group(name string) (*Group, bool) {
	g, ok := inv.groups[name]
	return g, ok
}

// HostNames returns every host name in lexical order.
func (inv *Inventory) HostNames() []string {
	return slices.Sorted(maps.Keys(inv.hosts))
}

// Host returns the named host.
func (inv *Inventory) Host(name string) (*Host, bool) {
	h, ok := inv.hosts[name]
	return h, ok
}

// HostVars returns the merged configuration of every host keyed by name.
// This is the whole input contract of the reporting collaborators.
func (inv *Inventory) HostVars() map[string]value.Map {
	out := make(map[string]value.Map, len(inv.hosts))
	for name, h := range inv.hosts {
		out[name] = h.Vars
	}
	return out
}

// HostGroups returns the group set of every host keyed by name.
func (inv *Inventory) HostGroups() map[string][]string {
	out := make(map[string][]string, len(inv.hosts))
	for name, h := range inv.hosts {
		out[name] = slices.Clone(h.Groups)
	}
	return out
}

// ToAny returns the Ansible dynamic inventory document:
//
//	{"<group>": {"hosts": [...], "vars": {...}}, "_meta": {"hostvars": {...}}}
func (inv *Inventory) ToAny() map[string]any {
	out := make(map[string]any, len(inv.groups)+1)
	for name, g := range inv.groups {
		hosts := make([]any, len(g.Hosts))
		for i, h := range g.Hosts {
			hosts[i] = h
		}
		out[name] = map[string]any{
			"hosts": hosts,
			"vars":  g.Vars.ToAny(),
		}
	}
	hostvars := make(map[string]any, len(inv.hosts))
	for name, h := range inv.hosts {
		hostvars[name] = h.Vars.ToAny()
	}
	out[MetaKey] = map[string]any{"hostvars": hostvars}
	return out
}

// MarshalJSON implements json.Marshaler.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.ToAny())
}
