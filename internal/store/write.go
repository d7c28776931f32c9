package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/ledger/internal/ledger"
)

// EventMeta is the host-side context stamped on every logged event.
type EventMeta struct {
	Seq       int64
	RequestID string
	Caller    ledger.Caller
}

// Commit durably applies a prepared change in one transaction: the record
// row, the allocator counter (on create) and the event row. Any failure
// rolls back all of it.
func (s *Store) Commit(ctx context.Context, c ledger.Change, meta EventMeta) error {
	payload, digest, err := marshalChange(c)
	if err != nil {
		return fmt.Errorf("commit %s: %w", c.Event, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", c.Event, err)
	}
	defer tx.Rollback()

	switch c.Op {
	case ledger.OpCreate:
		err = s.insertRecord(ctx, tx, c.Record)
		if err == nil {
			err = s.writeMeta(ctx, tx, metaNextID, toDB(c.NextID))
		}
	case ledger.OpUpdate:
		err = s.updateRecord(ctx, tx, c.Record)
	case ledger.OpDelete:
		err = s.deleteRecord(ctx, tx, c.ID)
	default:
		err = fmt.Errorf("unknown op %q", c.Op)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", c.Event, err)
	}

	if err := s.appendEvent(ctx, tx, c.Event, meta, payload, digest); err != nil {
		return fmt.Errorf("commit %s: %w", c.Event, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", c.Event, err)
	}
	return nil
}

func (s *Store) insertRecord(ctx context.Context, tx *sqlx.Tx, r ledger.Record) error {
	query, args, err := s.dialect.Insert(tableExpenses).Prepared(true).
		Rows(goqu.Record{
			"id":          toDB(uint64(r.ID)),
			"title":       r.Title,
			"description": r.Description,
			"amount":      toDB(r.Amount),
			"date":        r.Date,
			"category":    int64(r.Category),
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record %d: %w", r.ID, err)
	}
	return nil
}

func (s *Store) updateRecord(ctx context.Context, tx *sqlx.Tx, r ledger.Record) error {
	query, args, err := s.dialect.Update(tableExpenses).Prepared(true).
		Set(goqu.Record{
			"title":       r.Title,
			"description": r.Description,
			"amount":      toDB(r.Amount),
			"date":        r.Date,
			"category":    int64(r.Category),
		}).
		Where(goqu.C("id").Eq(toDB(uint64(r.ID)))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	return execOne(ctx, tx, query, args, fmt.Sprintf("update record %d", r.ID))
}

func (s *Store) deleteRecord(ctx context.Context, tx *sqlx.Tx, id ledger.RecordID) error {
	query, args, err := s.dialect.Delete(tableExpenses).Prepared(true).
		Where(goqu.C("id").Eq(toDB(uint64(id)))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return execOne(ctx, tx, query, args, fmt.Sprintf("delete record %d", id))
}

// execOne runs a statement that must touch exactly one row. Zero rows means
// the table disagrees with the in-memory ledger.
func execOne(ctx context.Context, tx *sqlx.Tx, query string, args []any, what string) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w (rows affected %d)", what, ErrNotFound, n)
	}
	return nil
}

func (s *Store) appendEvent(ctx context.Context, tx *sqlx.Tx, ev ledger.Event, meta EventMeta, payload []byte, digest string) error {
	query, args, err := s.dialect.Insert(tableEvents).Prepared(true).
		Rows(goqu.Record{
			"seq":        meta.Seq,
			"request_id": meta.RequestID,
			"caller":     string(meta.Caller),
			"kind":       string(ev.Kind),
			"record_id":  toDB(uint64(ev.ID)),
			"payload":    payload,
			"digest":     digest,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build event insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append event %d: %w", meta.Seq, err)
	}
	return nil
}
