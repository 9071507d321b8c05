// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/merge"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

func TestErrorSet_Empty(t *testing.T) {
	t.Parallel()

	var s ErrorSet
	s.Add(nil)
	s.AddHost("h", nil)
	if err := s.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestErrorSet_HostErrorsStayContiguous(t *testing.T) {
	t.Parallel()

	var s ErrorSet
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host := fmt.Sprintf("h%d", i)
			s.AddHost(host, []error{
				errors.New("first"),
				errors.New("second"),
				errors.New("third"),
			})
		}()
	}
	wg.Wait()

	errs := s.Errors()
	if len(errs) != 24 {
		t.Fatalf("len = %d, want 24", len(errs))
	}
	for i := 0; i < len(errs); i += 3 {
		var first *HostError
		if !errors.As(errs[i], &first) {
			t.Fatalf("error %d is not a HostError: %v", i, errs[i])
		}
		for j, want := range []string{"first", "second", "third"} {
			var he *HostError
			if !errors.As(errs[i+j], &he) || he.Host != first.Host || he.Err.Error() != want {
				t.Fatalf("errors of %s interleaved at %d: %v", first.Host, i+j, errs[i+j])
			}
		}
	}
}

func TestErrorSet_AddHostDoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	var s ErrorSet
	s.AddHost("h", []error{&HostError{Host: "h", Err: errors.New("boom")}})
	errs := s.Errors()
	if got := errs[0].Error(); got != "for host `h`: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestResolutionError(t *testing.T) {
	t.Parallel()

	var s ErrorSet
	s.Add(&value.StructuralError{Path: "groups/web.yml", Reason: "not a mapping"})
	s.AddHost("db1", []error{&merge.ConflictError{Path: "env", Target: value.String("prod"), Source: value.String("staging")}})
	s.AddHost("web1", []error{&MissingAddressError{Host: "web1", Fields: []string{"stuvus_host", "interfaces"}}})

	err := s.Err()
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("Err() = %T, want *ResolutionError", err)
	}
	if !errors.Is(err, merge.ErrConflict) || !errors.Is(err, ErrMissingAddress) || !errors.Is(err, value.ErrStructural) {
		t.Error("ResolutionError must expose every collected error")
	}
	if got := err.Error(); got != "inventory resolution failed with 3 errors" {
		t.Errorf("Error() = %q", got)
	}
	if want := []string{"db1", "web1"}; !slices.Equal(re.Hosts(), want) {
		t.Errorf("Hosts() = %v, want %v", re.Hosts(), want)
	}

	report := re.Report()
	lines := strings.Split(strings.TrimSuffix(report, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Report() has %d lines:\n%s", len(lines), report)
	}
	if want := "(2) for host `db1`: there are conflicting definitions for `env`: `\"prod\"` and `\"staging\"`"; lines[1] != want {
		t.Errorf("line 2 = %q, want %q", lines[1], want)
	}
	if !strings.HasPrefix(lines[2], "(3) for host `web1`: no connection address derivable for web1") {
		t.Errorf("line 3 = %q", lines[2])
	}
}

func TestMalformedGroupSpecError_Message(t *testing.T) {
	t.Parallel()

	err := &MalformedGroupSpecError{Field: "_groups", Value: value.Int(3)}
	if got, want := err.Error(), "expected a name or a list of names for `_groups`, found: `3`"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err.Reason = "nope"
	if got, want := err.Error(), "invalid `_groups`: nope"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
