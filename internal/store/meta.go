package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// readMeta returns the ledger_meta value for key; ok is false when unset.
func (s *Store) readMeta(ctx context.Context, q sqlx.QueryerContext, key string) (value int64, ok bool, err error) {
	query, args, err := s.dialect.From(tableMeta).Prepared(true).
		Select("value").
		Where(goqu.C("key").Eq(key)).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build meta query: %w", err)
	}

	if err := sqlx.GetContext(ctx, q, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, true, nil
}

// writeMeta upserts the ledger_meta value for key.
func (s *Store) writeMeta(ctx context.Context, e sqlx.ExecerContext, key string, value int64) error {
	query, args, err := s.dialect.Insert(tableMeta).Prepared(true).
		Rows(goqu.Record{"key": key, "value": value}).
		OnConflict(goqu.DoUpdate("key", goqu.Record{"value": value})).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build meta upsert: %w", err)
	}

	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}
