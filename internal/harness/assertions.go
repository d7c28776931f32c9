package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/ledger/internal/engine"
	"github.com/roach88/ledger/internal/ledger"
)

// AssertionContext provides what assertions read after the steps ran.
type AssertionContext struct {
	Engine *engine.Engine
	Events []string
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %d -> %s", event.Step, event.Op, event.ID, event.Outcome)
		if event.Event != "" {
			fmt.Fprintf(&buf, " %s", event.Event)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(trace, a, actx)
	case AssertAbsent:
		return assertAbsent(trace, a, actx)
	case AssertEvents:
		return assertEvents(trace, a, actx)
	case AssertNextID:
		return assertNextID(trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRecord checks that record a.ID exists with exactly a.Fields.
func assertRecord(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	want, err := a.Fields.Fields()
	if err != nil {
		return err
	}

	got, ok := actx.Engine.Get(ledger.RecordID(a.ID))
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %d present", a.ID),
			Actual:   "absent",
			Trace:    trace,
		}
	}

	if !fieldsEqual(got.Fields(), want) {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: formatFields(want),
			Actual:   formatFields(got.Fields()),
			Trace:    trace,
		}
	}
	return nil
}

func assertAbsent(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	if got, ok := actx.Engine.Get(ledger.RecordID(a.ID)); ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("record %d absent", a.ID),
			Actual:   formatFields(got.Fields()),
			Trace:    trace,
		}
	}
	return nil
}

// assertEvents checks the exact emitted sequence: same events, same order,
// nothing extra.
func assertEvents(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	if equalStrings(actx.Events, a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEvents,
		Expected: "[" + strings.Join(a.Events, ", ") + "]",
		Actual:   "[" + strings.Join(actx.Events, ", ") + "]",
		Trace:    trace,
	}
}

func assertNextID(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	if got := actx.Engine.NextID(); got != *a.NextID {
		return &AssertionError{
			Type:     AssertNextID,
			Expected: fmt.Sprintf("%d", *a.NextID),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    trace,
		}
	}
	return nil
}

func fieldsEqual(a, b ledger.Fields) bool {
	return bytes.Equal(a.Title, b.Title) &&
		bytes.Equal(a.Description, b.Description) &&
		a.Amount == b.Amount &&
		bytes.Equal(a.Date, b.Date) &&
		a.Category == b.Category
}

func formatFields(f ledger.Fields) string {
	return fmt.Sprintf("{title: %q, description: %q, amount: %d, date: %q, category: %s}",
		f.Title, f.Description, f.Amount, f.Date, f.Category)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
