package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/ledger/internal/engine"
	"github.com/roach88/ledger/internal/ledger"
	"github.com/roach88/ledger/internal/store"
	"github.com/roach88/ledger/internal/testutil"
)

// Harness executes one scenario against a live engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	caller ledger.Caller

	mu     sync.Mutex
	events []string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential request
// ids, so the same scenario always produces the same trace.
//
// Execution flow:
//  1. Open an in-memory store and an engine on top of it
//  2. Execute steps in order, checking each expect clause
//  3. Evaluate assertions against the final state
//  4. Replay the event log and compare it with the stored tables
//
// A returned error means the scenario could not be executed at all; a
// scenario that ran but did not hold is reported through Result.Pass.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	h := &Harness{store: st, caller: ledger.Caller(scenario.Caller)}

	eng, err := engine.Open(ctx, st,
		engine.WithRequestIDs(testutil.NewSequentialRequestIDs("req")),
		engine.WithSinks(engine.SinkFunc(h.record)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	h.engine = eng

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	result := NewResult()
	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i], result); err != nil {
			eng.Stop()
			<-done
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	eng.Stop()
	if err := <-done; err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	h.mu.Lock()
	result.Events = append(result.Events, h.events...)
	h.mu.Unlock()

	actx := &AssertionContext{Engine: eng, Events: result.Events}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}

	result.Digest, err = eng.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	return result, nil
}

// record is the engine sink. It runs on the engine's loop goroutine.
func (h *Harness) record(e engine.Emitted) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e.Event.String())
}

// executeStep runs one step, appends it to the trace and checks its expect
// clause.
func (h *Harness) executeStep(ctx context.Context, index int, st *Step, result *Result) error {
	ev := TraceEvent{Step: index + 1, Op: st.Op, ID: st.ID}

	if st.Op == StepGet {
		ev.Outcome = OutcomeOK
		if _, ok := h.engine.Get(ledger.RecordID(st.ID)); !ok {
			ev.Outcome = OutcomeAbsent
		}
		result.AddTrace(ev)
		h.checkExpect(index, st, ev, result)
		return nil
	}

	op, err := ledger.ParseOp(st.Op)
	if err != nil {
		return err
	}
	fields, err := st.Fields.Fields()
	if err != nil {
		return err
	}

	caller := h.caller
	if st.Caller != nil {
		caller = ledger.Caller(*st.Caller)
	}

	res, err := h.engine.Submit(ctx, ledger.Command{
		Op:     op,
		Caller: caller,
		ID:     ledger.RecordID(st.ID),
		Fields: fields,
	})

	ev.RequestID = res.RequestID
	switch {
	case err == nil:
		ev.ID = uint64(res.ID)
		ev.Seq = res.Seq
		ev.Outcome = OutcomeOK
		ev.Event = res.Event.String()
	case errors.Is(err, engine.ErrStopped):
		return err
	default:
		ev.Outcome = engine.ErrorCode(err)
	}

	result.AddTrace(ev)
	h.checkExpect(index, st, ev, result)
	return nil
}

func (h *Harness) checkExpect(index int, st *Step, ev TraceEvent, result *Result) {
	want := OutcomeOK
	if e := st.Expect; e != nil {
		switch {
		case e.Error != "":
			want = e.Error
		case e.Absent:
			want = OutcomeAbsent
		}
	}

	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("steps[%d] %s %d: expected outcome %s, got %s",
			index, st.Op, st.ID, want, ev.Outcome))
		return
	}

	if st.Expect != nil && st.Expect.ID != nil && ev.ID != *st.Expect.ID {
		result.AddError(fmt.Sprintf("steps[%d] create: expected id %d, got %d",
			index, *st.Expect.ID, ev.ID))
	}
}

// verifyReplay rebuilds the state from the event log and fails the result
// if it differs from the tables.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	rep, err := h.store.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !rep.Match {
		result.AddError(fmt.Sprintf("replay: event log digest %s does not match stored state %s",
			rep.Digest, rep.StoredDigest))
	}
	if rep.Events != len(result.Events) {
		result.AddError(fmt.Sprintf("replay: %d events logged, %d emitted",
			rep.Events, len(result.Events)))
	}
	return nil
}
