// Package engine resolves entity locators against a loaded library.
//
// The engine maps a ref.Locator to a version record, applies variable
// substitution, answers trait and policy introspection, walks relations,
// and appends new versions on publish.
//
// CONCURRENCY:
//
// The engine owns a single *library.Library pointer behind an RWMutex.
// Readers take a Snapshot, which captures the pointer once; every query on
// a Snapshot sees one consistent library even if a reload or publish
// happens meanwhile. Writers clone the library (copy-on-write), mutate the
// clone and swap the pointer under the write lock, so a published Library
// is never modified again.
//
// Callers that process a batch take one Snapshot per batch.
//
// ERRORS:
//
// Per-element failures (unknown entity, missing version, inaccessible
// entity, unknown trait set, invalid publish trait set) are *Error values
// and can be reported against a single element of a batch. A missing
// management policy is a *PolicyConfigError: the library itself is broken
// and the whole call should fail.
package engine
