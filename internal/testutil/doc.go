// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it, reducing boilerplate in table-driven tests.
//
// Helpers build configuration repositories on an in-memory filesystem
// (MemRepo, MustWriteFile, MustReadFile) and parse inline YAML into
// structured values (MustYAML).
package testutil
