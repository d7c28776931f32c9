package ledger

import "sort"

// Table maps record ids to records.
//
// Insert and Remove are unconditional; the dispatcher checks existence
// first. Records are copied on insert and on read.
type Table struct {
	rows map[RecordID]Record
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[RecordID]Record)}
}

// Get looks up id.
func (t *Table) Get(id RecordID) (Record, bool) {
	r, ok := t.rows[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// Has reports whether id is present.
func (t *Table) Has(id RecordID) bool {
	_, ok := t.rows[id]
	return ok
}

// Insert stores r under r.ID, replacing any existing entry.
func (t *Table) Insert(r Record) {
	t.rows[r.ID] = r.Clone()
}

// Remove deletes id. Removing an absent id is a no-op.
func (t *Table) Remove(id RecordID) {
	delete(t.rows, id)
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.rows)
}

// IDs returns every id in ascending order.
func (t *Table) IDs() []RecordID {
	ids := make([]RecordID, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns copies of every record, ascending by id.
func (t *Table) Snapshot() []Record {
	out := make([]Record, 0, len(t.rows))
	for _, id := range t.IDs() {
		out = append(out, t.rows[id].Clone())
	}
	return out
}
