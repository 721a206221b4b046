// Package trait provides the typed trait-data containers shared by every
// other bal package.
//
// Trait data is a two level mapping: trait id -> property key -> scalar
// value. Scalars are a closed union (String, Int, Float, Bool); nothing
// outside this package can add a new Value kind.
//
// This package imports nothing internal. The library store, the resolution
// engine and the batch adapter all speak in terms of these types.
//
// Key design constraints:
//   - Values are never nil inside a Properties map
//   - Integers decoded from JSON stay Int, never Float
//   - Set is always sorted and de-duplicated
//   - Canonical JSON (MarshalCanonical) is the only encoding used for
//     golden traces and the publish journal
package trait
