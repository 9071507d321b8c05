// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

var (
	// ErrMissingAddress is the sentinel error wrapped by MissingAddressError.
	ErrMissingAddress = errors.New("missing connection address")
	// ErrMalformedGroupSpec is the sentinel error wrapped by MalformedGroupSpecError.
	ErrMalformedGroupSpec = errors.New("malformed group specification")
)

type (
	// MissingAddressError reports a host whose connection address could not
	// be derived from its fragment.
	MissingAddressError struct {
		Host string
		// Fields lists the fields that were consulted.
		Fields []string
	}

	// MalformedGroupSpecError reports a group membership field that is neither
	// a name nor a list of names, or that names a group which cannot be joined
	// explicitly.
	MalformedGroupSpecError struct {
		Field string
		Value value.Value
		// Reason overrides the default message when set.
		Reason string
	}

	// HostError attributes an error to the host whose resolution produced it.
	HostError struct {
		Host string
		Err  error
	}

	// ErrorSet collects the errors of a resolution pass. It is safe for
	// concurrent use; the errors of one host are always stored contiguously
	// and in the order they were produced.
	ErrorSet struct {
		mu   sync.Mutex
		errs []error
	}

	// ResolutionError is the failure of a resolution pass: every collected
	// error, in report order.
	ResolutionError struct {
		Errors []error
	}
)

// Error implements the error interface.
func (e *MissingAddressError) Error() string {
	return fmt.Sprintf("no connection address derivable for %s: none of %s yields an address",
		e.Host, strings.Join(e.Fields, ", "))
}

// Unwrap returns ErrMissingAddress for errors.Is compatibility.
func (e *MissingAddressError) Unwrap() error { return ErrMissingAddress }

// Error implements the error interface.
func (e *MalformedGroupSpecError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid `%s`: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("expected a name or a list of names for `%s`, found: `%s`", e.Field, value.Format(e.Value))
}

// Unwrap returns ErrMalformedGroupSpec for errors.Is compatibility.
func (e *MalformedGroupSpecError) Unwrap() error { return ErrMalformedGroupSpec }

// Error implements the error interface.
func (e *HostError) Error() string {
	return fmt.Sprintf("for host `%s`: %v", e.Host, e.Err)
}

// Unwrap returns the attributed error.
func (e *HostError) Unwrap() error { return e.Err }

// Add appends pass-level errors (not tied to a host).
func (s *ErrorSet) Add(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, err := range errs {
		if err != nil {
			s.errs = append(s.errs, err)
		}
	}
}

// AddHost appends the errors of one host, each wrapped in a HostError unless
// it already is one.
func (s *ErrorSet) AddHost(host string, errs []error) {
	if len(errs) == 0 {
		return
	}
	wrapped := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		var he *HostError
		if errors.As(err, &he) && he.Host == host {
			wrapped = append(wrapped, err)
			continue
		}
		wrapped = append(wrapped, &HostError{Host: host, Err: err})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, wrapped...)
}

// Len returns the number of collected errors.
func (s *ErrorSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

// Errors returns a copy of the collected errors.
func (s *ErrorSet) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// Err returns nil when nothing was collected, otherwise a *ResolutionError.
func (s *ErrorSet) Err() error {
	errs := s.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ResolutionError{Errors: errs}
}

// Error implements the error interface with a one-line summary.
func (e *ResolutionError) Error() string {
	if len(e.Errors) == 1 {
		return "inventory resolution failed: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("inventory resolution failed with %d errors", len(e.Errors))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *ResolutionError) Unwrap() []error {
	return e.Errors
}

// Report renders every error on its own line, numbered from 1.
func (e *ResolutionError) Report() string {
	var sb strings.Builder
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "(%d) %s\n", i+1, err)
	}
	return sb.String()
}

// Hosts returns the names of the hosts with at least one error, in report order.
func (e *ResolutionError) Hosts() []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	for _, err := range e.Errors {
		var he *HostError
		if errors.As(err, &he) && !seen[he.Host] {
			seen[he.Host] = true
			out = append(out, he.Host)
		}
	}
	return out
}
