// SPDX-License-Identifier: MPL-2.0

package inventory

// Fields names the fragment keys the resolver interprets. Everything else in
// a fragment is opaque configuration.
type Fields struct {
	// Address is the connection address Ansible uses ("ansible_host").
	Address string
	// AltAddress is an explicit alternate address preferred over interfaces
	// ("stuvus_host").
	AltAddress string
	// Interfaces is the list of network interfaces ("interfaces").
	Interfaces string
	// InterfaceAddress is the address of one interface, optionally with a
	// prefix length ("ip").
	InterfaceAddress string
	// Groups is the group membership field ("_groups"). It never appears in
	// the merged configuration.
	Groups string
	// Virtualization marks a virtual machine ("vm").
	Virtualization string
}

// DefaultFields returns the field names of the stuvus configuration layout.
func DefaultFields() Fields {
	return Fields{
		Address:          "ansible_host",
		AltAddress:       "stuvus_host",
		Interfaces:       "interfaces",
		InterfaceAddress: "ip",
		Groups:           "_groups",
		Virtualization:   "vm",
	}
}

// withDefaults fills empty names from DefaultFields.
func (f Fields) withDefaults() Fields {
	d := DefaultFields()
	if f.Address == "" {
		f.Address = d.Address
	}
	if f.AltAddress == "" {
		f.AltAddress = d.AltAddress
	}
	if f.Interfaces == "" {
		f.Interfaces = d.Interfaces
	}
	if f.InterfaceAddress == "" {
		f.InterfaceAddress = d.InterfaceAddress
	}
	if f.Groups == "" {
		f.Groups = d.Groups
	}
	if f.Virtualization == "" {
		f.Virtualization = d.Virtualization
	}
	return f
}
