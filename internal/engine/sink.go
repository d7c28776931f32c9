package engine

import "github.com/roach88/ledger/internal/ledger"

// Emitted is what an EventSink receives after a mutation is durable.
type Emitted struct {
	Seq       int64
	RequestID string
	Caller    ledger.Caller
	Event     ledger.Event
}

// EventSink receives exactly one Emitted per successful mutation, in seq
// order, from the Run loop goroutine. Emit must not call back into the
// engine's Submit.
type EventSink interface {
	Emit(Emitted)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Emitted)

func (f SinkFunc) Emit(e Emitted) { f(e) }
