// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the hot paths of an inventory run:
//   - structured merge of deep mappings
//   - configuration loading (CUE schema validation)
//   - fragment loading from a repository tree
//   - host resolution, sequential and parallel
//   - the full pipeline from files to the JSON document
//
// Run them with:
//
//	go test -run '^$' -bench . ./internal/benchmark
package benchmark
