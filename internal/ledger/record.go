package ledger

// RecordID identifies a record. Ids are issued only by the Allocator.
type RecordID uint64

// Caller is a host-authenticated principal. The ledger requires one for
// every mutation but never interprets or stores it.
type Caller string

// Fields is the caller-supplied part of a record.
type Fields struct {
	Title       []byte
	Description []byte
	Amount      uint64
	Date        []byte
	Category    Category
}

// Record is a single expense entry.
//
// Title, Description and Date are opaque bytes. The ledger copies them on
// the way in and on the way out, so a Record handed to a caller never
// aliases table state.
type Record struct {
	ID          RecordID
	Title       []byte
	Description []byte
	Amount      uint64
	Date        []byte
	Category    Category
}

// NewRecord builds a record with id from f. Byte fields are copied.
func NewRecord(id RecordID, f Fields) Record {
	return Record{
		ID:          id,
		Title:       cloneBytes(f.Title),
		Description: cloneBytes(f.Description),
		Amount:      f.Amount,
		Date:        cloneBytes(f.Date),
		Category:    f.Category,
	}
}

// Fields returns the mutable part of r.
func (r Record) Fields() Fields {
	return Fields{
		Title:       cloneBytes(r.Title),
		Description: cloneBytes(r.Description),
		Amount:      r.Amount,
		Date:        cloneBytes(r.Date),
		Category:    r.Category,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	return NewRecord(r.ID, r.Fields())
}

// Canonical returns r in the form accepted by canon.Marshal.
func (r Record) Canonical() map[string]any {
	return map[string]any{
		"id":          uint64(r.ID),
		"title":       cloneBytes(r.Title),
		"description": cloneBytes(r.Description),
		"amount":      r.Amount,
		"date":        cloneBytes(r.Date),
		"category":    r.Category.String(),
	}
}

// cloneBytes always returns a non-nil slice so nil and empty compare equal
// after a round trip.
func cloneBytes(b []byte) []byte {
	return append([]byte{}, b...)
}
