// SPDX-License-Identifier: MPL-2.0

// Package merge combines structured configuration mappings key by key.
//
// Mappings merge recursively, lists concatenate (target first), and any other
// pair of values is resolved by the Mode: Overwrite lets the source win, Strict
// records a ConflictError when the values differ. Merging never mutates its
// inputs and never stops at the first conflict.
package merge

import (
	"errors"
	"fmt"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

const (
	// Overwrite lets the source value replace a differing scalar in the target.
	Overwrite Mode = iota
	// Strict reports a ConflictError when scalars differ.
	Strict
)

// ErrConflict is the sentinel error wrapped by ConflictError.
var ErrConflict = errors.New("merge conflict")

type (
	// Mode selects how differing non-container values are reconciled.
	Mode int

	// ConflictError reports two different values for the same key under Strict mode.
	ConflictError struct {
		// Path is the dotted key path of the conflict ("vm.org").
		Path string
		// Target is the value already present.
		Target value.Value
		// Source is the value that disagreed with it.
		Source value.Value
	}
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Overwrite:
		return "overwrite"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("there are conflicting definitions for `%s`: `%s` and `%s`",
		e.Path, value.Format(e.Target), value.Format(e.Source))
}

// Unwrap returns ErrConflict for errors.Is compatibility.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Maps merges source into a deep copy of target and returns the result.
// In Strict mode every differing scalar produces one ConflictError (the
// target value is kept) and merging continues with the remaining keys.
func Maps(target, source value.Map, mode Mode) (value.Map, []error) {
	out := target.Clone()
	errs := into(out, source, mode, "")
	return out, errs
}

// All folds every map into an empty one, left to right, and collects the
// errors of every step.
func All(mode Mode, maps ...value.Map) (value.Map, []error) {
	out := value.Map{}
	var errs []error
	for _, m := range maps {
		errs = append(errs, into(out, m, mode, "")...)
	}
	return out, errs
}

// into merges source into dst in place. dst must be owned by the caller.
func into(dst, source value.Map, mode Mode, path string) []error {
	var errs []error
	for _, key := range source.Keys() {
		src := source[key]
		cur, exists := dst[key]
		if !exists {
			dst[key] = value.Clone(src)
			continue
		}

		keyPath := value.JoinPath(path, key)
		switch cv := cur.(type) {
		case value.Map:
			if sv, ok := src.(value.Map); ok {
				errs = append(errs, into(cv, sv, mode, keyPath)...)
				continue
			}
		case value.List:
			if sv, ok := src.(value.List); ok {
				joined := make(value.List, 0, len(cv)+len(sv))
				joined = append(joined, cv...)
				joined = append(joined, sv.Clone()...)
				dst[key] = joined
				continue
			}
		}

		if value.Equal(cur, src) {
			continue
		}
		if mode == Strict {
			errs = append(errs, &ConflictError{Path: keyPath, Target: cur, Source: src})
			continue
		}
		dst[key] = value.Clone(src)
	}
	return errs
}
