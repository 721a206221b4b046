// Package manager adapts the engine to a batch calling convention.
//
// Every batch call takes a list of inputs and reports each element through
// a success or an error callback; one element failing never stops the
// others. Problems that make the whole call meaningless (uninitialized
// manager, unsupported capability, broken policy table, a cancelled
// context) are returned as the call's error instead.
//
// Each batch:
//   - is assigned a UUIDv7 batch id that appears in every log line
//   - sleeps once for the configured simulated query latency
//   - reads from a single engine snapshot
//
// Settings are a flat map validated on Initialize. Partial updates keep
// earlier values.
package manager
