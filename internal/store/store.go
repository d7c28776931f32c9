package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Schema version tracking (ledger_meta.schema_version):
// 1 - expenses, ledger_meta, events
const currentSchemaVersion = 1

const (
	tableExpenses = "expenses"
	tableMeta     = "ledger_meta"
	tableEvents   = "events"

	metaNextID        = "next_id"
	metaSchemaVersion = "schema_version"
)

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("not found")

// ErrUnsupportedDriver is returned by OpenDriver for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Store is the durable home of a ledger: its record table, its allocator
// counter and the append-only event log.
type Store struct {
	db      *sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Pass ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return finishOpen(db, DriverSQLite)
}

// OpenDriver opens a store on any supported driver. The sqlite3 driver is
// routed through Open so it gets the same pragmas.
func OpenDriver(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, "":
		return Open(dsn)
	case DriverPgx, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return finishOpen(db, driver)
}

func finishOpen(db *sqlx.DB, driver string) (*Store, error) {
	s := &Store{
		db:      db,
		driver:  driver,
		dialect: goqu.Dialect(dialectFor(driver)),
	}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

func dialectFor(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func schemaFor(driver string) string {
	if driver == DriverSQLite {
		return schemaSQLite
	}
	return schemaPostgres
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection for direct queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. Idempotent.
func (s *Store) applySchema() error {
	for _, stmt := range splitStatements(schemaFor(s.driver)) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	ctx := context.Background()
	version, ok, err := s.readMeta(ctx, s.db, metaSchemaVersion)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if ok && version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if !ok || version < currentSchemaVersion {
		if err := s.writeMeta(ctx, s.db, metaSchemaVersion, currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// splitStatements breaks a schema file into individual statements so
// drivers without multi-statement Exec support can apply it.
func splitStatements(schema string) []string {
	var out []string
	for _, part := range strings.Split(schema, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// SchemaVersion returns the version recorded in ledger_meta.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	v, _, err := s.readMeta(ctx, s.db, metaSchemaVersion)
	return v, err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
