// SPDX-License-Identifier: MPL-2.0

package macgen

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/testutil"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

var macPattern = regexp.MustCompile(`^[0-9A-F]{2}(:[0-9A-F]{2}){5}$`)

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestUsedMACs(t *testing.T) {
	t.Parallel()

	hostvars := map[string]value.Map{
		"a": testutil.MustYAML(t, "interfaces:\n  - mac: aa:aa:aa:aa:00:01\n  - ip: 10.0.0.1\n"),
		"b": testutil.MustYAML(t, "interfaces:\n  - mac: AAAAAAAA0002\n"),
		"c": testutil.MustYAML(t, "interfaces: none\n"),
	}
	used := UsedMACs(hostvars, DefaultFields())
	for _, want := range []string{"AA:AA:AA:AA:00:01", "AA:AA:AA:AA:00:02"} {
		if !used[want] {
			t.Errorf("%s not collected: %v", want, used)
		}
	}
	if len(used) != 2 {
		t.Errorf("used = %v, want 2 entries", used)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	a := New(map[string]bool{}, seeded())
	for _, prefix := range []string{DefaultPrefix, "aaaa", "02:00", ""} {
		mac, err := a.Next(prefix)
		if err != nil {
			t.Fatalf("Next(%q) error = %v", prefix, err)
		}
		if !macPattern.MatchString(mac) {
			t.Errorf("Next(%q) = %q, not a MAC", prefix, mac)
		}
		if want := Normalize(prefix); len(want) > 0 && mac[:len(want)] != want {
			t.Errorf("Next(%q) = %q, want prefix %q", prefix, mac, want)
		}
	}
}

func TestNext_FullPrefixReturnedAsIs(t *testing.T) {
	t.Parallel()

	mac, err := New(map[string]bool{}).Next("02:00:5e:10:00:01:ff")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if mac != "02:00:5E:10:00:01" {
		t.Errorf("Next() = %q", mac)
	}
}

func TestNext_AvoidsUsed(t *testing.T) {
	t.Parallel()

	// Prefix leaves one hex digit: 16 candidates, 15 used.
	used := map[string]bool{}
	for _, d := range "0123456789ABCDE" {
		used["AA:AA:AA:AA:AA:A"+string(d)] = true
	}
	a := New(used, seeded())
	mac, err := a.Next("AAAAAAAAAAA")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if mac != "AA:AA:AA:AA:AA:AF" {
		t.Errorf("Next() = %q, want the only free address", mac)
	}

	if _, err := a.Next("AAAAAAAAAAA"); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next() after exhaustion error = %v, want ErrExhausted", err)
	}
}

func TestNext_InvalidPrefix(t *testing.T) {
	t.Parallel()

	if _, err := New(map[string]bool{}).Next("ZZ:"); !errors.Is(err, ErrInvalidPrefix) {
		t.Fatalf("Next() error = %v, want ErrInvalidPrefix", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"aa:bb:cc:dd:ee:ff": "AA:BB:CC:DD:EE:FF",
		"aabbccddeeff":      "AA:BB:CC:DD:EE:FF",
		"AA:AA:AA:AA:":      "AA:AA:AA:AA",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
