package ledger

import (
	"errors"
	"fmt"

	"github.com/roach88/ledger/internal/canon"
)

// Op identifies a mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ParseOp converts a name to an Op.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpCreate, OpUpdate, OpDelete:
		return op, nil
	default:
		return "", fmt.Errorf("unknown op %q", s)
	}
}

// Command is one mutation request.
// ID is ignored for create; Fields is ignored for delete.
type Command struct {
	Op     Op
	Caller Caller
	ID     RecordID
	Fields Fields
}

// Change is a fully computed transition, produced by Prepare and applied by
// Commit.
type Change struct {
	Op Op
	ID RecordID

	// Record is the post-state record for create and update; zero for delete.
	Record Record

	// NextID is the allocator counter after the change.
	NextID uint64

	Event Event

	revision uint64
}

// ErrStaleChange is returned by Commit when the ledger has moved on since
// the change was prepared.
var ErrStaleChange = errors.New("change prepared against a stale ledger")

// Ledger is the expense store: a record table plus an id allocator.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	table    *Table
	alloc    *Allocator
	revision uint64
}

// New returns an empty ledger whose allocator is at the 0 sentinel.
func New() *Ledger {
	return &Ledger{
		table: NewTable(),
		alloc: &Allocator{},
	}
}

// Restore rebuilds a ledger from persisted state.
//
// It fails with ErrInconsistentState when records and next cannot have been
// produced by a sequence of mutations: id 0, duplicate ids, an invalid
// category, records under an untouched allocator, or an id the allocator
// has not issued yet.
func Restore(records []Record, next uint64) (*Ledger, error) {
	l := New()
	if next == 0 && len(records) > 0 {
		return nil, fmt.Errorf("%w: %d records but allocator never used", ErrInconsistentState, len(records))
	}
	for _, r := range records {
		switch {
		case r.ID == 0:
			return nil, fmt.Errorf("%w: record with id 0", ErrInconsistentState)
		case uint64(r.ID) >= next:
			return nil, fmt.Errorf("%w: record %d not below next id %d", ErrInconsistentState, r.ID, next)
		case l.table.Has(r.ID):
			return nil, fmt.Errorf("%w: duplicate record %d", ErrInconsistentState, r.ID)
		case !r.Category.Valid():
			return nil, fmt.Errorf("%w: record %d has category ordinal %d", ErrInconsistentState, r.ID, uint8(r.Category))
		}
		l.table.Insert(r)
	}
	l.alloc.set(next)
	return l, nil
}

// Prepare validates cmd against the current state and computes its effect.
// Nothing is mutated.
func (l *Ledger) Prepare(cmd Command) (Change, error) {
	c := Change{Op: cmd.Op, NextID: l.alloc.Peek(), revision: l.revision}

	if (cmd.Op == OpCreate || cmd.Op == OpUpdate) && !cmd.Fields.Category.Valid() {
		return Change{}, fmt.Errorf("%s: %w: ordinal %d", cmd.Op, ErrInvalidCategory, uint8(cmd.Fields.Category))
	}

	switch cmd.Op {
	case OpCreate:
		id, next, err := l.alloc.plan()
		if err != nil {
			return Change{}, err
		}
		c.ID = id
		c.NextID = next
		c.Record = NewRecord(id, cmd.Fields)
		c.Event = Event{Kind: EventRecordCreated, ID: id}

	case OpUpdate:
		if !l.table.Has(cmd.ID) {
			return Change{}, fmt.Errorf("update %d: %w", cmd.ID, ErrRecordNotFound)
		}
		c.ID = cmd.ID
		c.Record = NewRecord(cmd.ID, cmd.Fields)
		c.Event = Event{Kind: EventRecordUpdated, ID: cmd.ID}

	case OpDelete:
		if !l.table.Has(cmd.ID) {
			return Change{}, fmt.Errorf("delete %d: %w", cmd.ID, ErrRecordNotFound)
		}
		c.ID = cmd.ID
		c.Event = Event{Kind: EventRecordDeleted, ID: cmd.ID}

	default:
		return Change{}, fmt.Errorf("unknown op %q", cmd.Op)
	}

	return c, nil
}

// Commit applies a change returned by Prepare on this ledger.
//
// A change may be committed at most once, and only if no other change has
// been committed since it was prepared.
func (l *Ledger) Commit(c Change) error {
	if c.revision != l.revision {
		return ErrStaleChange
	}

	switch c.Op {
	case OpCreate:
		l.table.Insert(c.Record)
		l.alloc.set(c.NextID)
	case OpUpdate:
		l.table.Insert(c.Record)
	case OpDelete:
		l.table.Remove(c.ID)
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}

	l.revision++
	return nil
}

// Apply runs Prepare and Commit back to back.
func (l *Ledger) Apply(cmd Command) (Change, error) {
	c, err := l.Prepare(cmd)
	if err != nil {
		return Change{}, err
	}
	if err := l.Commit(c); err != nil {
		return Change{}, err
	}
	return c, nil
}

// Create stores a new record under a freshly allocated id.
func (l *Ledger) Create(caller Caller, f Fields) (RecordID, Event, error) {
	c, err := l.Apply(Command{Op: OpCreate, Caller: caller, Fields: f})
	if err != nil {
		return 0, Event{}, err
	}
	return c.ID, c.Event, nil
}

// Update replaces every field of record id.
func (l *Ledger) Update(caller Caller, id RecordID, f Fields) (Event, error) {
	c, err := l.Apply(Command{Op: OpUpdate, Caller: caller, ID: id, Fields: f})
	if err != nil {
		return Event{}, err
	}
	return c.Event, nil
}

// Delete removes record id. The id is never issued again.
func (l *Ledger) Delete(caller Caller, id RecordID) (Event, error) {
	c, err := l.Apply(Command{Op: OpDelete, Caller: caller, ID: id})
	if err != nil {
		return Event{}, err
	}
	return c.Event, nil
}

// Get returns a copy of record id.
func (l *Ledger) Get(id RecordID) (Record, bool) {
	return l.table.Get(id)
}

// Len returns the number of live records.
func (l *Ledger) Len() int {
	return l.table.Len()
}

// NextID returns the raw allocator counter (0 until the first create).
func (l *Ledger) NextID() uint64 {
	return l.alloc.Peek()
}

// Snapshot returns copies of every record, ascending by id.
func (l *Ledger) Snapshot() []Record {
	return l.table.Snapshot()
}

// Digest hashes the full state: every record plus the allocator counter.
// Two ledgers have equal digests exactly when their state is identical.
func (l *Ledger) Digest() (string, error) {
	return StateDigest(l.table.Snapshot(), l.alloc.Peek())
}

// StateDigest computes the digest Ledger.Digest would report for records
// (ascending by id) and next.
func StateDigest(records []Record, next uint64) (string, error) {
	rows := make([]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Canonical())
	}
	return canon.Digest(canon.DomainState, map[string]any{
		"next_id": next,
		"records": rows,
	})
}

// RecordDigest hashes a single record.
func RecordDigest(r Record) (string, error) {
	return canon.Digest(canon.DomainRecord, r.Canonical())
}
