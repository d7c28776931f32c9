package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// clearLedgerEnv unsets LEDGER_* variables for the duration of the test so
// the developer's shell cannot leak into config resolution.
func clearLedgerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LEDGER_DRIVER", "LEDGER_DSN", "LEDGER_LOG_LEVEL", "LEDGER_LOG_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// testDB returns a fresh database path in a temp dir.
func testDB(t *testing.T) string {
	t.Helper()
	clearLedgerEnv(t)
	return filepath.Join(t.TempDir(), "ledger.db")
}

// run executes the root command against db and returns stdout.
func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	full := append([]string{"--dsn", db, "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return out.String(), err
}

// runJSON executes a command with --format json and decodes the envelope.
func runJSON(t *testing.T, db string, args ...string) (CLIResponse, error) {
	t.Helper()
	out, err := run(t, db, append([]string{"--format", "json"}, args...)...)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

// dataMap returns the envelope payload as a map.
func dataMap(t *testing.T, resp CLIResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func mustCreate(t *testing.T, db string, args ...string) {
	t.Helper()
	_, err := run(t, db, append([]string{"create", "--caller", "alice"}, args...)...)
	require.NoError(t, err)
}
