package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledger/internal/ledger"
)

// Scenario is a conformance test case: a sequence of ledger operations run
// by one caller, followed by assertions on the final state.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Caller      string      `yaml:"caller"`
	Steps       []Step      `yaml:"steps"`
	Assertions  []Assertion `yaml:"assertions"`
}

// Step is one operation.
type Step struct {
	// Op is create, update, delete or get.
	Op string `yaml:"op"`

	// ID targets update, delete and get.
	ID uint64 `yaml:"id,omitempty"`

	// Caller overrides the scenario caller. An explicit empty string
	// submits the step unauthenticated.
	Caller *string `yaml:"caller,omitempty"`

	Fields *FieldValues `yaml:"fields,omitempty"`
	Expect *Expect     `yaml:"expect,omitempty"`
}

// FieldValues is the YAML form of ledger.Fields. Category is a name;
// empty means Other.
type FieldValues struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Amount      uint64 `yaml:"amount"`
	Date        string `yaml:"date"`
	Category    string `yaml:"category"`
}

// Fields converts f into ledger fields. A nil f is an empty record.
func (f *FieldValues) Fields() (ledger.Fields, error) {
	if f == nil {
		return ledger.Fields{Category: ledger.CategoryOther}, nil
	}
	cat, err := ledger.ParseCategory(f.Category)
	if err != nil {
		return ledger.Fields{}, err
	}
	return ledger.Fields{
		Title:       []byte(f.Title),
		Description: []byte(f.Description),
		Amount:      f.Amount,
		Date:        []byte(f.Date),
		Category:    cat,
	}, nil
}

// Expect describes the expected outcome of a step. A step without an
// expect clause must succeed.
type Expect struct {
	// ID is the id a create must return.
	ID *uint64 `yaml:"id,omitempty"`

	// Error is the expected error code, e.g. RecordNotFound.
	Error string `yaml:"error,omitempty"`

	// Absent marks a get that must find nothing.
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion is evaluated after all steps have run.
type Assertion struct {
	Type string `yaml:"type"`

	// ID is the record checked by record and absent.
	ID uint64 `yaml:"id,omitempty"`

	// Fields is the expected content for record.
	Fields *FieldValues `yaml:"fields,omitempty"`

	// Events is the exact event sequence for events, e.g. RecordCreated(1).
	Events []string `yaml:"events,omitempty"`

	// NextID is the expected raw allocator counter for next_id.
	NextID *uint64 `yaml:"next_id,omitempty"`
}

// Assertion types.
const (
	AssertRecord = "record"
	AssertAbsent = "absent"
	AssertEvents = "events"
	AssertNextID = "next_id"
)

// Step operations. Mutations use the ledger's op names.
const (
	StepCreate = string(ledger.OpCreate)
	StepUpdate = string(ledger.OpUpdate)
	StepDelete = string(ledger.OpDelete)
	StepGet    = "get"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Caller == "" {
		return fmt.Errorf("caller is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case StepCreate:
		if st.ID != 0 {
			return fmt.Errorf("steps[%d]: create takes no id", index)
		}
	case StepUpdate, StepDelete, StepGet:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.Fields != nil {
		if st.Op == StepDelete || st.Op == StepGet {
			return fmt.Errorf("steps[%d]: %s takes no fields", index, st.Op)
		}
		if _, err := st.Fields.Fields(); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}

	if e := st.Expect; e != nil {
		if e.Error != "" && st.Op == StepGet {
			return fmt.Errorf("steps[%d].expect: get cannot fail, use absent", index)
		}
		if e.Absent && st.Op != StepGet {
			return fmt.Errorf("steps[%d].expect: absent applies to get only", index)
		}
		if e.ID != nil && st.Op != StepCreate {
			return fmt.Errorf("steps[%d].expect: id applies to create only", index)
		}
		if e.Error != "" && (e.ID != nil || e.Absent) {
			return fmt.Errorf("steps[%d].expect: error excludes id and absent", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecord:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for record", index)
		}
		if a.Fields == nil {
			return fmt.Errorf("assertions[%d]: fields is required for record", index)
		}
		if _, err := a.Fields.Fields(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertAbsent:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for absent", index)
		}
	case AssertEvents:
		if a.Events == nil {
			return fmt.Errorf("assertions[%d]: events list is required for events", index)
		}
	case AssertNextID:
		if a.NextID == nil {
			return fmt.Errorf("assertions[%d]: next_id is required for next_id", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}
