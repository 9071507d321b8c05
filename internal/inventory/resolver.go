// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/merge"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

type (
	// Resolver turns one host fragment into that host's merged configuration.
	// It only reads the Registry, so one Resolver may serve many goroutines
	// once the registry's variables are complete.
	Resolver struct {
		registry  *Registry
		overrides value.Map
		fields    Fields
	}

	// Resolution is the outcome of resolving one host. Config is always set,
	// even when Errors is not empty; such a configuration is best effort and
	// must not be deployed.
	Resolution struct {
		Host string
		// Address is the connection address, "" when none could be derived.
		Address string
		// Groups is the host's group set in lexical order.
		Groups []string
		// Config is the fully merged configuration.
		Config value.Map
		// Errors lists the problems found for this host in the order found.
		Errors []error
	}
)

// NewResolver creates a resolver over registry. overrides are the user
// supplied values with the lowest priority.
func NewResolver(registry *Registry, overrides value.Map, fields Fields) *Resolver {
	if overrides == nil {
		overrides = value.Map{}
	}
	return &Resolver{registry: registry, overrides: overrides, fields: fields.withDefaults()}
}

// Resolve merges the scopes that apply to host. The fragment is not modified.
func (r *Resolver) Resolve(host string, fragment value.Map) *Resolution {
	if fragment == nil {
		fragment = value.Map{}
	}
	res := &Resolution{Host: host}

	hostVars := fragment
	addr, derived, errs := r.address(host, fragment)
	res.Errors = append(res.Errors, errs...)
	res.Address = addr
	if derived {
		hostVars = fragment.Without()
		hostVars[r.fields.Address] = value.String(addr)
	}

	groups, errs := r.groups(fragment)
	res.Errors = append(res.Errors, errs...)
	res.Groups = groups

	// Groups the host belongs to are independent of each other: neither may
	// silently override the other.
	candidate := value.Map{}
	for _, g := range groups {
		if g == GroupAll {
			continue
		}
		var conflicts []error
		candidate, conflicts = merge.Maps(candidate, r.registry.Vars(g), merge.Strict)
		res.Errors = append(res.Errors, conflicts...)
	}

	cfg, _ := merge.All(merge.Overwrite,
		r.overrides,
		r.registry.Vars(GroupAll),
		candidate,
		hostVars,
	)
	delete(cfg, r.fields.Groups)
	res.Config = cfg
	return res
}

// address returns the host's connection address. derived is true when the
// fragment did not declare one and it was taken from another field.
func (r *Resolver) address(host string, fragment value.Map) (addr string, derived bool, errs []error) {
	f := r.fields

	if v, ok := fragment[f.Address]; ok {
		s, isString := v.(value.String)
		if !isString {
			return "", false, []error{&value.StructuralError{
				Path:   f.Address,
				Reason: fmt.Sprintf("connection address must be a string, found %s", v.Kind()),
			}}
		}
		return string(s), false, nil
	}

	if v, ok := fragment[f.AltAddress]; ok {
		if s, isString := v.(value.String); isString && s != "" {
			return string(s), true, nil
		}
		errs = append(errs, &value.StructuralError{
			Path:   f.AltAddress,
			Reason: "alternate address must be a non-empty string, found " + value.Format(v),
		})
	}

	if v, ok := fragment[f.Interfaces]; ok {
		ifaces, isList := v.(value.List)
		if !isList {
			errs = append(errs, &value.StructuralError{
				Path:   f.Interfaces,
				Reason: fmt.Sprintf("expected a list of interfaces, found %s", v.Kind()),
			})
		}
		for i, item := range ifaces {
			path := f.Interfaces + "[" + strconv.Itoa(i) + "]"
			iface, isMap := item.(value.Map)
			if !isMap {
				errs = append(errs, &value.StructuralError{
					Path:   path,
					Reason: fmt.Sprintf("expected an interface mapping, found %s", item.Kind()),
				})
				continue
			}
			raw, ok := iface[f.InterfaceAddress]
			if !ok {
				continue
			}
			s, isString := raw.(value.String)
			if !isString {
				errs = append(errs, &value.StructuralError{
					Path:   value.JoinPath(path, f.InterfaceAddress),
					Reason: fmt.Sprintf("interface address must be a string, found %s", raw.Kind()),
				})
				continue
			}
			if a := StripPrefixLength(string(s)); a != "" {
				return a, true, errs
			}
		}
	}

	errs = append(errs, &MissingAddressError{Host: host, Fields: []string{f.AltAddress, f.Interfaces}})
	return "", false, errs
}

// groups derives the host's group set from the membership and
// virtualization fields. Both are read from the raw fragment independently.
func (r *Resolver) groups(fragment value.Map) ([]string, []error) {
	f := r.fields
	var (
		explicit []string
		errs     []error
	)

	switch spec := fragment[f.Groups].(type) {
	case nil, value.Null:
		// Absent: the host is ungrouped.
	case value.String:
		if spec == "" {
			errs = append(errs, &MalformedGroupSpecError{Field: f.Groups, Value: spec})
			break
		}
		explicit = append(explicit, string(spec))
	case value.List:
		malformed := false
		for _, item := range spec {
			name, ok := item.(value.String)
			if !ok || name == "" {
				malformed = true
				continue
			}
			explicit = append(explicit, string(name))
		}
		if malformed {
			errs = append(errs, &MalformedGroupSpecError{Field: f.Groups, Value: spec})
		}
	default:
		errs = append(errs, &MalformedGroupSpecError{Field: f.Groups, Value: spec})
	}

	set := map[string]bool{}
	for _, name := range explicit {
		var reason string
		switch name {
		case GroupVirtual:
			reason = fmt.Sprintf("group `%s` is derived from `%s` and cannot be joined explicitly", GroupVirtual, f.Virtualization)
		case MetaKey:
			reason = fmt.Sprintf("`%s` is reserved for host variables", MetaKey)
		}
		if reason != "" {
			errs = append(errs, &MalformedGroupSpecError{Field: f.Groups, Value: fragment[f.Groups], Reason: reason})
			continue
		}
		set[name] = true
	}
	delete(set, GroupAll)
	if len(set) == 0 {
		set[GroupUngrouped] = true
	}
	set[GroupAll] = true
	if fragment.Has(f.Virtualization) {
		set[GroupVirtual] = true
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, errs
}

// StripPrefixLength removes a CIDR prefix length: "10.0.0.1/24" -> "10.0.0.1".
func StripPrefixLength(addr string) string {
	before, _, _ := strings.Cut(addr, "/")
	return strings.TrimSpace(before)
}
