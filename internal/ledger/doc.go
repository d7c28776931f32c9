// Package ledger implements the expense ledger state machine.
//
// A Ledger owns two pieces of state: the record table (id -> Record) and the
// identifier allocator. Three mutations change that state:
//
//	create: absent -> exists, under a freshly allocated id
//	update: exists -> exists, every field replaced
//	delete: exists -> absent, id retired forever
//
// Every successful mutation yields exactly one Event. A failed mutation
// yields an error and leaves the state untouched.
//
// The package is strictly sequential. It performs no locking and no I/O;
// the engine package serializes access and makes the changes durable.
//
// Mutations run in two phases. Prepare checks preconditions against the
// current state and computes the complete transition (a Change) without
// touching anything. Commit applies a Change. A host that persists state
// commits to storage between the two, so a rejected storage write never
// leaves the in-memory ledger ahead of the durable one.
//
// Field contents are not validated. Empty titles, empty dates and a zero
// amount are all accepted; stricter input contracts belong to the caller.
package ledger
