// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the command line: each error
// names the failed operation and the file involved, and carries remediation
// hints that are printed below the message.
package issue
