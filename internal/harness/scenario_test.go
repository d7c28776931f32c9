package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledger/internal/ledger"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
caller: alice
steps:
  - op: create
    fields:
      title: Rent
      amount: 1000
      date: "2024-02-12"
      category: food
    expect:
      id: 1
  - op: get
    id: 1
assertions:
  - type: next_id
    next_id: 2
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "alice", scenario.Caller)
	require.Len(t, scenario.Steps, 2)
	require.Len(t, scenario.Assertions, 1)

	create := scenario.Steps[0]
	assert.Equal(t, StepCreate, create.Op)
	require.NotNil(t, create.Expect)
	require.NotNil(t, create.Expect.ID)
	assert.Equal(t, uint64(1), *create.Expect.ID)

	f, err := create.Fields.Fields()
	require.NoError(t, err)
	assert.Equal(t, []byte("Rent"), f.Title)
	assert.Equal(t, uint64(1000), f.Amount)
	assert.Equal(t, ledger.CategoryFood, f.Category)

	assert.Equal(t, uint64(2), *scenario.Assertions[0].NextID)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "assertion instead of assertions"
caller: alice
steps:
  - op: create
assertion:
  - type: next_id
    next_id: 2
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_CallerOverride(t *testing.T) {
	path := writeScenario(t, `
name: anon
description: "empty caller override"
caller: alice
steps:
  - op: create
    caller: ""
    expect:
      error: Unauthenticated
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, scenario.Steps[0].Caller)
	assert.Equal(t, "", *scenario.Steps[0].Caller)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\ncaller: a\nsteps:\n  - op: create\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\ncaller: a\nsteps:\n  - op: create\n",
			wantErr: "description is required",
		},
		{
			name:    "missing caller",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: create\n",
			wantErr: "caller is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\ncaller: a\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: rename\n",
			wantErr: `unknown op "rename"`,
		},
		{
			name:    "create with id",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: create\n    id: 4\n",
			wantErr: "create takes no id",
		},
		{
			name:    "delete with fields",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: delete\n    id: 1\n    fields: {title: x}\n",
			wantErr: "delete takes no fields",
		},
		{
			name:    "bad category",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: create\n    fields: {category: Travel}\n",
			wantErr: "invalid category",
		},
		{
			name:    "absent on update",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: update\n    id: 1\n    expect: {absent: true}\n",
			wantErr: "absent applies to get only",
		},
		{
			name:    "error on get",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: get\n    id: 1\n    expect: {error: RecordNotFound}\n",
			wantErr: "get cannot fail",
		},
		{
			name:    "record assertion without fields",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: create\nassertions:\n  - type: record\n    id: 1\n",
			wantErr: "fields is required for record",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\ncaller: a\nsteps:\n  - op: create\nassertions:\n  - type: final_state\n",
			wantErr: `unknown type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Contains(t, names, "create_works")
	assert.Contains(t, names, "missing_record_fails")
	assert.IsIncreasing(t, names)
}

func TestLoadDir_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestFieldValues_NilIsOther(t *testing.T) {
	var f *FieldValues
	got, err := f.Fields()
	require.NoError(t, err)
	assert.Equal(t, ledger.CategoryOther, got.Category)
	assert.Empty(t, got.Title)
}
