package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledger/internal/store"
)

func TestReplayEmptyDatabase(t *testing.T) {
	db := testDB(t)

	resp, err := runJSON(t, db, "replay")
	require.NoError(t, err)
	data := dataMap(t, resp)
	assert.Equal(t, true, data["match"])
	assert.Equal(t, float64(0), data["events"])
}

func TestReplayMatch(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "--title", "Rent", "--amount", "1000")
	mustCreate(t, db, "--title", "Bus", "--amount", "3")
	_, err := run(t, db, "delete", "1", "--caller", "alice")
	require.NoError(t, err)

	out, err := run(t, db, "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH: 3 events through seq 3")

	resp, err := runJSON(t, db, "replay")
	require.NoError(t, err)
	data := dataMap(t, resp)
	assert.Equal(t, true, data["match"])
	assert.Equal(t, data["digest"], data["stored_digest"])
}

func TestReplayDetectsTamperedTable(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, "--title", "Rent", "--amount", "1000")

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().Exec("UPDATE expenses SET amount = 5 WHERE id = 1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	resp, err := runJSON(t, db, "replay")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, false, dataMap(t, resp)["match"])
}

func TestReplayOpenFailure(t *testing.T) {
	clearLedgerEnv(t)

	_, err := run(t, t.TempDir()+"/missing/dir/ledger.db", "replay")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
