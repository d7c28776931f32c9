package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/ledger/internal/ledger"
)

// Snapshot is the persisted ledger state.
type Snapshot struct {
	Records []ledger.Record // ascending by id
	NextID  uint64
	LastSeq int64
}

// StoredEvent is one row of the event log.
type StoredEvent struct {
	Seq       int64
	RequestID string
	Caller    ledger.Caller
	Event     ledger.Event
	Payload   []byte
	Digest    string
}

type expenseRow struct {
	ID          int64  `db:"id"`
	Title       []byte `db:"title"`
	Description []byte `db:"description"`
	Amount      int64  `db:"amount"`
	Date        []byte `db:"date"`
	Category    int64  `db:"category"`
}

type eventRow struct {
	Seq       int64  `db:"seq"`
	RequestID string `db:"request_id"`
	Caller    string `db:"caller"`
	Kind      string `db:"kind"`
	RecordID  int64  `db:"record_id"`
	Payload   []byte `db:"payload"`
	Digest    string `db:"digest"`
}

var expenseColumns = []any{"id", "title", "description", "amount", "date", "category"}

var eventColumns = []any{"seq", "request_id", "caller", "kind", "record_id", "payload", "digest"}

func (row expenseRow) record() (ledger.Record, error) {
	cat, err := ledger.CategoryFromOrdinal(row.Category)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("record %d: %w", fromDB(row.ID), err)
	}
	return ledger.NewRecord(ledger.RecordID(fromDB(row.ID)), ledger.Fields{
		Title:       row.Title,
		Description: row.Description,
		Amount:      fromDB(row.Amount),
		Date:        row.Date,
		Category:    cat,
	}), nil
}

func (row eventRow) event() (StoredEvent, error) {
	kind := ledger.EventKind(row.Kind)
	if !kind.Valid() {
		return StoredEvent{}, fmt.Errorf("event %d: unknown kind %q", row.Seq, row.Kind)
	}
	return StoredEvent{
		Seq:       row.Seq,
		RequestID: row.RequestID,
		Caller:    ledger.Caller(row.Caller),
		Event:     ledger.Event{Kind: kind, ID: ledger.RecordID(fromDB(row.RecordID))},
		Payload:   row.Payload,
		Digest:    row.Digest,
	}, nil
}

// Load reads the full persisted state.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	records, err := s.ReadRecords(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load: %w", err)
	}

	next, _, err := s.readMeta(ctx, s.db, metaNextID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load: %w", err)
	}

	lastSeq, err := s.LastSeq(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load: %w", err)
	}

	return Snapshot{Records: records, NextID: fromDB(next), LastSeq: lastSeq}, nil
}

// ReadRecords returns every stored record, ascending by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadRecords(ctx context.Context) ([]ledger.Record, error) {
	query, args, err := s.dialect.From(tableExpenses).Prepared(true).
		Select(expenseColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}

	var rows []expenseRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records := make([]ledger.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	// Ordered in Go: ids above MaxInt64 are negative in the database.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// ReadRecord returns a single record. Returns ErrNotFound if absent.
func (s *Store) ReadRecord(ctx context.Context, id ledger.RecordID) (ledger.Record, error) {
	query, args, err := s.dialect.From(tableExpenses).Prepared(true).
		Select(expenseColumns...).
		Where(goqu.C("id").Eq(toDB(uint64(id)))).
		ToSQL()
	if err != nil {
		return ledger.Record{}, fmt.Errorf("build record query: %w", err)
	}

	var row expenseRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Record{}, fmt.Errorf("record %d: %w", id, ErrNotFound)
		}
		return ledger.Record{}, fmt.Errorf("query record %d: %w", id, err)
	}
	return row.record()
}

// ReadEvents returns events with seq > afterSeq in seq order. A limit of
// zero or less means no limit.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64, limit int) ([]StoredEvent, error) {
	ds := s.dialect.From(tableEvents).Prepared(true).
		Select(eventColumns...).
		Where(goqu.C("seq").Gt(afterSeq)).
		Order(goqu.C("seq").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]StoredEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := row.event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// LastSeq returns the highest logged seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	query, args, err := s.dialect.From(tableEvents).Prepared(true).
		Select(goqu.COALESCE(goqu.MAX("seq"), 0)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build last seq query: %w", err)
	}

	var seq int64
	if err := s.db.GetContext(ctx, &seq, query, args...); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
