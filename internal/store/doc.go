// Package store provides SQL-backed durable storage for the expense ledger.
//
// Three tables hold everything:
//   - expenses: the record table, one row per live record
//   - ledger_meta: the allocator counter (next_id) and schema_version
//   - events: append-only log of every successful mutation
//
// Commit writes all three for one mutation inside a single transaction, so
// the tables and the log never disagree. Replay re-derives the state from
// the log alone and compares digests with the tables.
//
// # Drivers
//
//   - sqlite3 (github.com/mattn/go-sqlite3): default; WAL, single writer
//   - pgx (github.com/jackc/pgx/v5/stdlib)
//   - postgres (github.com/lib/pq)
//
// SQL is built with goqu using the sqlite3 or postgres dialect and always
// sent as prepared statements.
//
// # Encoding
//
// Ids, amounts and the allocator counter are uint64 in the ledger and
// stored as the bit-identical int64; SQL drivers reject uint64 values with
// the high bit set. Ordering by id therefore happens in Go, not SQL.
//
// Event payloads are JSON (json-iterator); the digest column holds the
// canonical hash of the record the event carries.
//
// All ordering of the log uses seq (the engine's logical clock), never
// timestamps.
package store
