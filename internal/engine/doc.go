// Package engine hosts a ledger as a standalone service.
//
// The ledger package is a strictly sequential state machine. The engine
// supplies the mutual exclusion and durability around it.
//
// ARCHITECTURE:
//
// Single-Writer Request Loop:
// Every mutation is queued and applied by one goroutine, one at a time.
// A mutation is fully applied, event emission included, before the next
// one is dequeued.
//
// Request Processing Flow:
//  1. Submit rejects callers with no identity, then enqueues the request
//  2. Run dequeues in FIFO order
//  3. ledger.Prepare checks preconditions; on error, reply and stop here
//  4. The store commits record, counter and event row in one transaction
//  5. ledger.Commit applies the change under the write lock
//  6. Every EventSink receives the event, then the submitter gets the reply
//
// If step 4 fails the in-memory ledger never changes, so memory and disk
// cannot disagree.
//
// Readers (Get, Snapshot, NextID, Digest) take the read lock and see the
// state either before or after any mutation.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Logged events are stamped with a monotonic seq from Clock. Rejected
// requests consume no seq. NEVER use wall-clock timestamps for ordering.
//
// Run to Completion:
// Cancelling a submitter's context abandons its wait, not its request.
// A dequeued mutation is never interrupted.
package engine
