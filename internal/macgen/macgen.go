// SPDX-License-Identifier: MPL-2.0

// Package macgen proposes hardware addresses that no host uses yet.
package macgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	// DefaultPrefix is used when no prefix is given.
	DefaultPrefix = "AA:AA:AA:AA:"

	macDigits = 12
)

var (
	// ErrInvalidPrefix is returned for a prefix with non-hex characters.
	ErrInvalidPrefix = errors.New("invalid MAC prefix")
	// ErrExhausted is returned when every address under the prefix is used.
	ErrExhausted = errors.New("no unused MAC address left under prefix")
)

type (
	// Fields names the configuration keys holding hardware addresses.
	Fields struct {
		Interfaces   string
		InterfaceMAC string
	}

	// Allocator draws unused addresses under a prefix.
	Allocator struct {
		used map[string]bool
		rand *rand.Rand
	}

	// Option configures an Allocator.
	Option func(*Allocator)
)

// DefaultFields returns the keys of the stuvus configuration layout.
func DefaultFields() Fields {
	return Fields{Interfaces: "interfaces", InterfaceMAC: "mac"}
}

// WithRand makes the allocator draw from r.
func WithRand(r *rand.Rand) Option {
	return func(a *Allocator) { a.rand = r }
}

// UsedMACs collects the normalized hardware addresses of every interface of
// every host.
func UsedMACs(hostvars map[string]value.Map, f Fields) map[string]bool {
	used := map[string]bool{}
	for _, cfg := range hostvars {
		ifaces, _ := cfg.GetList(f.Interfaces)
		for _, item := range ifaces {
			iface, ok := item.(value.Map)
			if !ok {
				continue
			}
			if mac, ok := iface.GetString(f.InterfaceMAC); ok && mac != "" {
				used[Normalize(mac)] = true
			}
		}
	}
	return used
}

// New returns an allocator avoiding the used addresses.
func New(used map[string]bool, opts ...Option) *Allocator {
	a := &Allocator{used: used}
	for _, opt := range opts {
		opt(a)
	}
	if a.rand == nil {
		a.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a
}

// Next returns an unused address starting with prefix. Colons in the prefix
// are optional. A prefix of twelve or more digits is returned as is.
func (a *Allocator) Next(prefix string) (string, error) {
	digits := strings.ReplaceAll(prefix, ":", "")
	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", fmt.Errorf("%w %q: %q is not a hex digit", ErrInvalidPrefix, prefix, r)
		}
	}
	if len(digits) >= macDigits {
		return format(digits[:macDigits]), nil
	}

	free := macDigits - len(digits)
	space := uint64(1) << (4 * free)
	var taken uint64
	for mac := range a.used {
		if strings.HasPrefix(strings.ReplaceAll(mac, ":", ""), strings.ToUpper(digits)) {
			taken++
		}
	}
	if taken >= space {
		return "", fmt.Errorf("%w %q", ErrExhausted, prefix)
	}

	for {
		suffix := fmt.Sprintf("%0*X", free, a.rand.Uint64N(space))
		mac := format(digits + suffix)
		if !a.used[mac] {
			a.used[mac] = true
			return mac, nil
		}
	}
}

// Normalize returns mac in upper case with colons between octets.
func Normalize(mac string) string {
	return format(strings.ReplaceAll(mac, ":", ""))
}

func format(hex string) string {
	hex = strings.ToUpper(hex)
	var sb strings.Builder
	for i := 0; i < len(hex); i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hex[i:min(i+2, len(hex))])
	}
	return sb.String()
}
