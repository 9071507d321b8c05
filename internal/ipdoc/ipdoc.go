// SPDX-License-Identifier: MPL-2.0

// Package ipdoc renders the address table of the infrastructure: one row per
// address a host uses, sorted by address.
package ipdoc

import (
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cast"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	// TypeVM marks a host with a virtualization block.
	TypeVM = "vm"
	// TypeHardware marks every other host.
	TypeHardware = "hw"
	// NoOrganisation fills the organisation column of hosts without one.
	NoOrganisation = "___-___"
)

// Columns are the table headers in order.
var Columns = []string{"ip", "hostname", "type", "description", "organisation", "groups"}

type (
	// Fields names the configuration keys the table reads.
	Fields struct {
		Address            string
		Interfaces         string
		Bridges            string
		InterfaceAddress   string
		InterfaceAddresses string
		Virtualization     string
		Description        string
		Organisation       string
	}

	// Row is one line of the table.
	Row struct {
		IP           string
		Hostname     string
		Type         string
		Description  string
		Organisation string
		Groups       string
	}

	// Options configures Rows.
	Options struct {
		Fields Fields
		// Groups optionally lists each host's groups for the groups column.
		Groups map[string][]string
	}
)

// DefaultFields returns the keys of the stuvus configuration layout.
func DefaultFields() Fields {
	return Fields{
		Address:            "ansible_host",
		Interfaces:         "interfaces",
		Bridges:            "bridges",
		InterfaceAddress:   "ip",
		InterfaceAddresses: "ips",
		Virtualization:     "vm",
		Description:        "description",
		Organisation:       "org",
	}
}

// Rows builds the table from merged host configurations. Each distinct
// address yields one row; when several hosts claim the same address the
// lexically first host keeps it.
func Rows(hostvars map[string]value.Map, opts Options) []Row {
	f := opts.Fields
	owner := map[string]string{}
	byAddr := map[string]Row{}

	hosts := make([]string, 0, len(hostvars))
	for name := range hostvars {
		hosts = append(hosts, name)
	}
	slices.Sort(hosts)

	for _, host := range hosts {
		cfg := hostvars[host]
		base := Row{
			Hostname:     host,
			Type:         TypeHardware,
			Description:  text(cfg[f.Description]),
			Organisation: NoOrganisation,
			Groups:       strings.Join(opts.Groups[host], ", "),
		}
		if cfg.Has(f.Virtualization) {
			base.Type = TypeVM
			if vm, ok := cfg.GetMap(f.Virtualization); ok {
				if org := text(vm[f.Organisation]); org != "" {
					base.Organisation = org
				}
			}
		}

		for _, addr := range Addresses(cfg, f) {
			if prev, taken := owner[addr]; taken {
				if prev != host {
					slog.Warn("address used by several hosts", "address", addr, "kept", prev, "dropped", host)
				}
				continue
			}
			owner[addr] = host
			row := base
			row.IP = addr
			byAddr[addr] = row
		}
	}

	rows := make([]Row, 0, len(byAddr))
	for _, r := range byAddr {
		rows = append(rows, r)
	}
	slices.SortFunc(rows, func(a, b Row) int { return compareAddr(a.IP, b.IP) })
	return rows
}

// Addresses returns every address of one host in declaration order: the
// connection address, then the single and multiple address fields of every
// interface and bridge. Prefix lengths are stripped.
func Addresses(cfg value.Map, f Fields) []string {
	var out []string
	add := func(v value.Value) {
		s := text(v)
		s, _, _ = strings.Cut(s, "/")
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	if v, ok := cfg[f.Address]; ok {
		add(v)
	}
	for _, key := range []string{f.Interfaces, f.Bridges} {
		list, _ := cfg.GetList(key)
		for _, item := range list {
			iface, ok := item.(value.Map)
			if !ok {
				continue
			}
			if v, ok := iface[f.InterfaceAddress]; ok {
				add(v)
			}
			ips, _ := iface.GetList(f.InterfaceAddresses)
			for _, v := range ips {
				add(v)
			}
		}
	}
	return out
}

// compareAddr orders IP addresses numerically (IPv4 before IPv6) and puts
// anything that does not parse, such as DNS names, after them lexically.
func compareAddr(a, b string) int {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	switch {
	case errA == nil && errB == nil:
		return pa.Compare(pb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func text(v value.Value) string {
	if v == nil || !value.IsScalar(v) {
		return ""
	}
	return cast.ToString(value.ToAny(v))
}

// Markdown renders rows as a markdown table preceded by a "Last update" line.
// Columns are padded to their widest cell.
func Markdown(rows []Row, updated time.Time) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.IP, r.Hostname, r.Type, r.Description, r.Organisation, r.Groups})
	}

	widths := make([]int, len(Columns))
	for i, h := range Columns {
		widths[i] = lipgloss.Width(h)
	}
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last update %s\n\n", updated.Format(time.DateTime))
	writeLine(&sb, Columns, widths)
	sb.WriteByte('|')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteByte('|')
	}
	sb.WriteByte('\n')
	for _, line := range cells {
		writeLine(&sb, line, widths)
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, cells []string, widths []int) {
	sb.WriteByte('|')
	for i, c := range cells {
		sb.WriteByte(' ')
		sb.WriteString(c)
		sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		sb.WriteString(" |")
	}
	sb.WriteByte('\n')
}

// Render formats markdown for the terminal. width 0 keeps glamour's default
// wrapping.
func Render(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
