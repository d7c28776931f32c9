// Package harness provides conformance testing for the expense ledger.
//
// A scenario is a list of ledger operations executed by one caller against
// a live engine backed by a fresh in-memory store, followed by assertions
// on the resulting state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: update_replaces_fields
//	description: "Update overwrites every field of a record"
//	caller: alice
//	steps:
//	  - op: create
//	    fields: { title: Rent, amount: 1000, date: "2024-02-12", category: Food }
//	    expect: { id: 1 }
//	  - op: update
//	    id: 1
//	    fields: { title: Market, amount: 500, date: "2024-02-13", category: Food }
//	  - op: delete
//	    id: 99
//	    expect: { error: RecordNotFound }
//	  - op: get
//	    id: 2
//	    expect: { absent: true }
//	assertions:
//	  - type: record
//	    id: 1
//	    fields: { title: Market, amount: 500, date: "2024-02-13", category: Food }
//	  - type: events
//	    events: ["RecordCreated(1)", "RecordUpdated(1)"]
//	  - type: next_id
//	    next_id: 2
//
// A step with no expect clause must succeed. A step may set caller to
// override the scenario caller; caller: "" submits it unauthenticated.
//
// # Assertion Types
//
//   - record: the record exists with exactly the given fields
//   - absent: no record has the given id
//   - events: the engine emitted exactly this event sequence
//   - next_id: the raw allocator counter
//
// After the assertions, the harness replays the store's event log and
// fails the scenario if the rebuilt state differs from the stored tables.
//
// # Deterministic Testing
//
// Request ids come from testutil.SequentialRequestIDs and seqs from a
// clock starting at zero, so the same scenario always produces the same
// trace. RunWithGolden compares that trace against
// testdata/golden/<name>.golden.
package harness
