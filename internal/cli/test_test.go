package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"
const harnessGolden = "../harness/testdata/golden"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const failingScenario = `
name: wrong_outcome
description: "expects a delete of an absent id to succeed"
caller: alice
steps:
  - op: delete
    id: 42
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS create_works")
	assert.Contains(t, out, "PASS missing_record_fails")
	assert.Contains(t, out, " 0 failed")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", harnessScenarios, "--golden", harnessGolden, "--filter", "delete_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Contains(t, []string{"delete_works", "delete_is_terminal"}, s.Name)
	}
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wrong.yaml"), failingScenario)

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "FAIL wrong_outcome")
	assert.Contains(t, out, "expected outcome ok, got RecordNotFound")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "name: bad\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "update_works.yaml"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "update_works.yaml"), string(src))

	_, err = runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "update_works.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile(filepath.Join(harnessGolden, "update_works.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	_, err = runTestCommand(t, "text", dir)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "golden", "update_works.golden"), `{"trace":[]}`)
	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestFindScenarioFiles_Filter(t *testing.T) {
	files, err := findScenarioFiles(harnessScenarios, "*_works")
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "_works")
	}

	_, err = findScenarioFiles(harnessScenarios, "[")
	assert.Error(t, err)
}
