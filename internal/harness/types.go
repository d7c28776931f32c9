package harness

// Outcome recorded for a step that succeeded.
const OutcomeOK = "ok"

// Outcome recorded for a get whose record does not exist.
const OutcomeAbsent = "absent"

// TraceEvent is one executed step.
type TraceEvent struct {
	Step      int    `json:"step"`
	Op        string `json:"op"`
	ID        uint64 `json:"id"`
	Seq       int64  `json:"seq"`                  // 0 for reads and rejected mutations
	RequestID string `json:"request_id,omitempty"` // empty for reads
	Outcome   string `json:"outcome"`              // "ok", "absent" or an error code
	Event     string `json:"event,omitempty"`      // e.g. RecordCreated(1)
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one entry per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Events are the events delivered to the engine's sink, in seq order.
	Events []string `json:"events"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Digest is the final state digest.
	Digest string `json:"digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Events: []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
