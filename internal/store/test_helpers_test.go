package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/ledger/internal/ledger"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testFields(title string, amount uint64) ledger.Fields {
	return ledger.Fields{
		Title:       []byte(title),
		Description: []byte("February payment"),
		Amount:      amount,
		Date:        []byte("2024-02-12"),
		Category:    ledger.CategoryFood,
	}
}

// apply runs cmd the way the engine does: prepare, commit durably, then
// commit in memory.
func apply(t *testing.T, s *Store, l *ledger.Ledger, seq int64, cmd ledger.Command) ledger.Change {
	t.Helper()
	if cmd.Caller == "" {
		cmd.Caller = "alice"
	}
	c, err := l.Prepare(cmd)
	if err != nil {
		t.Fatalf("Prepare(%v) failed: %v", cmd.Op, err)
	}
	meta := EventMeta{Seq: seq, RequestID: requestID(seq), Caller: cmd.Caller}
	if err := s.Commit(context.Background(), c, meta); err != nil {
		t.Fatalf("Commit(%s) failed: %v", c.Event, err)
	}
	if err := l.Commit(c); err != nil {
		t.Fatalf("ledger Commit(%s) failed: %v", c.Event, err)
	}
	return c
}

func requestID(seq int64) string {
	return fmt.Sprintf("req-%d", seq)
}
