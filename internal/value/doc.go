// SPDX-License-Identifier: MPL-2.0

// Package value defines the schema-less structured data that configuration
// fragments are made of.
//
// A Value is exactly one of Null, Bool, Int, Float, String, List or Map. The set
// is closed: code that walks a Value switches on the concrete type (or on Kind)
// and can rely on the switch being exhaustive. Decoders (YAML, TOML, JSON) produce
// plain Go data that FromAny converts; encoders consume the output of ToAny.
package value
