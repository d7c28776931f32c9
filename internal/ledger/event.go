package ledger

import "fmt"

// EventKind names the mutation an Event reports.
type EventKind string

const (
	EventRecordCreated EventKind = "RecordCreated"
	EventRecordUpdated EventKind = "RecordUpdated"
	EventRecordDeleted EventKind = "RecordDeleted"
)

// Valid reports whether k is one of the three event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventRecordCreated, EventRecordUpdated, EventRecordDeleted:
		return true
	}
	return false
}

// Event is emitted exactly once per successful mutation.
type Event struct {
	Kind EventKind
	ID   RecordID
}

// String renders the event as Kind(id), e.g. RecordCreated(1).
func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Kind, e.ID)
}
