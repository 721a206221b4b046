// Package library holds the in-memory entity library loaded from a JSON
// document.
//
// A Library maps entity names to append-only version lists, carries the
// management policy and default-entity tables keyed by access mode, and a
// variables table used for substitution. Documents are checked against an
// embedded CUE schema before decoding.
//
// Libraries are treated as values by the engine: readers never observe a
// Library being mutated. Writers call CloneForWrite, mutate the clone and
// publish it in place of the original.
package library
