package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps logged events.
//
// Every successful mutation gets the next seq. Rejected requests do not
// consume one, so the event log has no gaps. Never use wall-clock time for
// ordering.
//
// Clock is safe for concurrent use; only the Run loop advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after a persisted sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Peek returns the value Next would return, without advancing.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
