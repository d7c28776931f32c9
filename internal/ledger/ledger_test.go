package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice Caller = "alice"

func rentFields() Fields {
	return Fields{
		Title:       []byte("Rent"),
		Description: []byte("February payment"),
		Amount:      1000,
		Date:        []byte("2024-02-12"),
		Category:    CategoryFood,
	}
}

func mustDigest(t *testing.T, l *Ledger) string {
	t.Helper()
	d, err := l.Digest()
	require.NoError(t, err)
	return d
}

func TestCreate_RoundTrip(t *testing.T) {
	l := New()

	id, ev, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	assert.Equal(t, RecordID(1), id)
	assert.Equal(t, Event{Kind: EventRecordCreated, ID: 1}, ev)

	got, ok := l.Get(id)
	require.True(t, ok)
	assert.Equal(t, NewRecord(1, rentFields()), got)
	assert.Equal(t, "Rent", string(got.Title))
	assert.Equal(t, "February payment", string(got.Description))
	assert.Equal(t, uint64(1000), got.Amount)
	assert.Equal(t, "2024-02-12", string(got.Date))
	assert.Equal(t, CategoryFood, got.Category)
}

func TestCreate_AcceptsEmptyFields(t *testing.T) {
	l := New()

	id, _, err := l.Create(alice, Fields{})
	require.NoError(t, err)

	got, ok := l.Get(id)
	require.True(t, ok)
	assert.Empty(t, got.Title)
	assert.NotNil(t, got.Title)
	assert.Zero(t, got.Amount)
	assert.Equal(t, CategoryFood, got.Category)
}

func TestCreate_IDsStrictlyIncreasingAcrossDeletes(t *testing.T) {
	l := New()

	var last RecordID
	for i := 0; i < 20; i++ {
		id, _, err := l.Create(alice, rentFields())
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id

		if i%3 == 0 {
			_, err := l.Delete(alice, id)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, RecordID(20), last)
	assert.Equal(t, uint64(21), l.NextID())
}

func TestCreate_DoesNotAliasCallerBytes(t *testing.T) {
	l := New()
	f := rentFields()

	id, _, err := l.Create(alice, f)
	require.NoError(t, err)

	f.Title[0] = 'X'
	got, _ := l.Get(id)
	assert.Equal(t, "Rent", string(got.Title))

	got.Title[0] = 'Y'
	again, _ := l.Get(id)
	assert.Equal(t, "Rent", string(again.Title))
}

func TestUpdate_ReplacesAllFields(t *testing.T) {
	l := New()
	id, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	f := rentFields()
	f.Title = []byte("Market")
	f.Amount = 500

	ev, err := l.Update(alice, id, f)
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventRecordUpdated, ID: id}, ev)

	got, ok := l.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Market", string(got.Title))
	assert.Equal(t, uint64(500), got.Amount)
	assert.Equal(t, "February payment", string(got.Description))
	assert.Equal(t, "2024-02-12", string(got.Date))
	assert.Equal(t, CategoryFood, got.Category)
}

func TestUpdate_NoPartialUpdate(t *testing.T) {
	l := New()
	id, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	_, err = l.Update(alice, id, Fields{Amount: 7})
	require.NoError(t, err)

	got, _ := l.Get(id)
	assert.Equal(t, NewRecord(id, Fields{Amount: 7}), got)
}

func TestUpdateDelete_AbsentIDFailsClosed(t *testing.T) {
	l := New()
	_, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	before := mustDigest(t, l)
	snapshot := l.Snapshot()

	_, ok := l.Get(99)
	assert.False(t, ok)

	_, err = l.Update(alice, 99, rentFields())
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = l.Delete(alice, 99)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, ok = l.Get(99)
	assert.False(t, ok)
	assert.Equal(t, before, mustDigest(t, l))
	assert.Equal(t, snapshot, l.Snapshot())
	assert.Equal(t, uint64(2), l.NextID())
}

func TestCreateUpdate_RejectOutOfRangeCategory(t *testing.T) {
	l := New()
	id, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	before := mustDigest(t, l)
	bad := rentFields()
	bad.Category = Category(42)

	_, _, err = l.Create(alice, bad)
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Equal(t, CodeInvalidCategory, ErrorCode(err))

	_, err = l.Update(alice, id, bad)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	assert.Equal(t, before, mustDigest(t, l))
	assert.Equal(t, uint64(2), l.NextID())

	got, ok := l.Get(id)
	require.True(t, ok)
	assert.Equal(t, CategoryFood, got.Category)

	// the state stays reloadable
	_, err = Restore(l.Snapshot(), l.NextID())
	require.NoError(t, err)
}

func TestDelete_IsTerminal(t *testing.T) {
	l := New()
	id, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)

	ev, err := l.Delete(alice, id)
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventRecordDeleted, ID: 1}, ev)

	_, ok := l.Get(id)
	assert.False(t, ok)

	_, err = l.Update(alice, id, rentFields())
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = l.Delete(alice, id)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	next, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)
	assert.Equal(t, RecordID(2), next)
}

func TestCreate_ExhaustedIdentifierSpace(t *testing.T) {
	l, err := Restore(nil, math.MaxUint64-1)
	require.NoError(t, err)

	id, _, err := l.Create(alice, rentFields())
	require.NoError(t, err)
	assert.Equal(t, RecordID(math.MaxUint64-1), id)

	before := mustDigest(t, l)

	_, _, err = l.Create(alice, rentFields())
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)
	_, _, err = l.Create(alice, rentFields())
	assert.ErrorIs(t, err, ErrIdentifierSpaceExhausted)

	assert.Equal(t, before, mustDigest(t, l))
	assert.Equal(t, uint64(math.MaxUint64), l.NextID())

	// existing records stay fully usable
	_, err = l.Update(alice, id, Fields{Title: []byte("still here")})
	require.NoError(t, err)
	_, err = l.Delete(alice, id)
	require.NoError(t, err)
}

func TestPrepare_DoesNotMutate(t *testing.T) {
	l := New()
	before := mustDigest(t, l)

	c, err := l.Prepare(Command{Op: OpCreate, Caller: alice, Fields: rentFields()})
	require.NoError(t, err)
	assert.Equal(t, RecordID(1), c.ID)
	assert.Equal(t, uint64(2), c.NextID)
	assert.Equal(t, "RecordCreated(1)", c.Event.String())

	assert.Equal(t, before, mustDigest(t, l))
	assert.Equal(t, 0, l.Len())
	assert.Zero(t, l.NextID())

	require.NoError(t, l.Commit(c))
	assert.Equal(t, 1, l.Len())
}

func TestCommit_RejectsStaleChange(t *testing.T) {
	l := New()

	a, err := l.Prepare(Command{Op: OpCreate, Caller: alice, Fields: rentFields()})
	require.NoError(t, err)
	b, err := l.Prepare(Command{Op: OpCreate, Caller: alice, Fields: rentFields()})
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	require.NoError(t, l.Commit(a))
	assert.ErrorIs(t, l.Commit(b), ErrStaleChange)
	assert.ErrorIs(t, l.Commit(a), ErrStaleChange)
	assert.Equal(t, 1, l.Len())
}

func TestPrepare_UnknownOp(t *testing.T) {
	l := New()
	_, err := l.Prepare(Command{Op: "upsert"})
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	r1 := NewRecord(1, rentFields())
	r3 := NewRecord(3, rentFields())

	t.Run("valid", func(t *testing.T) {
		l, err := Restore([]Record{r3, r1}, 4)
		require.NoError(t, err)
		assert.Equal(t, 2, l.Len())

		id, _, err := l.Create(alice, rentFields())
		require.NoError(t, err)
		assert.Equal(t, RecordID(4), id)
	})

	tests := []struct {
		name    string
		records []Record
		next    uint64
	}{
		{"records under sentinel", []Record{r1}, 0},
		{"id at counter", []Record{r3}, 3},
		{"duplicate", []Record{r1, r1}, 2},
		{"zero id", []Record{NewRecord(0, rentFields())}, 2},
		{"bad category", []Record{NewRecord(1, Fields{Category: 42})}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.records, tt.next)
			assert.ErrorIs(t, err, ErrInconsistentState)
		})
	}
}

func TestDigest_EqualForEqualState(t *testing.T) {
	a := New()
	b := New()

	for _, l := range []*Ledger{a, b} {
		_, _, err := l.Create(alice, rentFields())
		require.NoError(t, err)
	}
	assert.Equal(t, mustDigest(t, a), mustDigest(t, b))

	// same table, different counter
	_, _, err := b.Create(alice, rentFields())
	require.NoError(t, err)
	_, err = b.Delete(alice, 2)
	require.NoError(t, err)
	assert.NotEqual(t, mustDigest(t, a), mustDigest(t, b))
}

func TestErrorCode(t *testing.T) {
	l := New()
	_, err := l.Delete(alice, 5)
	assert.Equal(t, CodeRecordNotFound, ErrorCode(err))
	assert.Equal(t, CodeIdentifierSpaceExhausted, ErrorCode(ErrIdentifierSpaceExhausted))
	assert.Equal(t, "", ErrorCode(assert.AnError))
}
