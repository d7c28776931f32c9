package ledger

import "math"

// Allocator hands out strictly increasing record ids.
//
// The counter holds the next id to issue. Zero is a sentinel meaning
// "never used": the first Allocate bumps it to 1 before issuing. The counter
// never decreases, so an id is retired once issued even if its record is
// later deleted.
//
// The counter stops at math.MaxUint64. At that point Allocate fails with
// ErrIdentifierSpaceExhausted and leaves the counter where it is, so the
// highest id ever issued is math.MaxUint64-1.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	next uint64
}

// NewAllocatorAt restores an allocator from a persisted counter value.
func NewAllocatorAt(next uint64) *Allocator {
	return &Allocator{next: next}
}

// Allocate returns the current id and advances the counter by one.
func (a *Allocator) Allocate() (RecordID, error) {
	id, next, err := a.plan()
	if err != nil {
		return 0, err
	}
	a.next = next
	return id, nil
}

// Peek returns the raw counter, including the 0 sentinel.
func (a *Allocator) Peek() uint64 {
	return a.next
}

// plan computes what Allocate would return and the counter it would leave
// behind, without changing anything.
func (a *Allocator) plan() (RecordID, uint64, error) {
	cur := a.next
	if cur == 0 {
		cur = 1
	}
	if cur == math.MaxUint64 {
		return 0, 0, ErrIdentifierSpaceExhausted
	}
	return RecordID(cur), cur + 1, nil
}

func (a *Allocator) set(next uint64) {
	a.next = next
}
