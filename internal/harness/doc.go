// Package harness provides conformance testing for BAL libraries.
//
// A scenario loads one library document, makes a sequence of batch calls
// against a manager and checks every element's outcome. Scenarios are
// defined in YAML:
//
//	name: publish_then_resolve
//	description: "A registered version becomes the latest"
//	library: ../library.json
//	batch_id: "batch-001"
//	steps:
//	  - op: register
//	    access: write
//	    refs: ["bal:///shot"]
//	    data:
//	      - { string: { value: "take two" } }
//	    expect:
//	      - ok: "bal:///shot?v=2"
//	  - op: resolve
//	    refs: ["bal:///shot", "bal:///missing"]
//	    traits: [string]
//	    expect:
//	      - ok: { string: { value: "take two" } }
//	      - error: { code: EntityResolutionError }
//	assertions:
//	  - type: published
//	    entity: shot
//	    version: 2
//
// # Ops
//
//   - exists, resolve, entity_traits: take refs
//   - preflight, register: take refs and per-ref data
//   - policy, default_entity: take trait_sets
//   - related: takes refs, relationships, traits (result filter), page_size
//
// # Assertion Types
//
//   - op_count: Verifies an op was called exactly N times
//   - published: Verifies the journal's size or one of its entries
//   - resolves: Resolves a reference after all steps and compares the data
//   - exists: Checks a reference exists after all steps
//
// # Deterministic Testing
//
// Every call in a scenario uses the same fixed batch id, simulated
// latency is recorded rather than slept, and ${name} substitution only
// sees the scenario's env block. The same scenario therefore always
// produces the same trace, which RunWithGolden compares byte for byte
// against testdata/golden/<name>.golden.
package harness
