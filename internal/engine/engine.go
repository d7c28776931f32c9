package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/ledger/internal/ledger"
	"github.com/roach88/ledger/internal/store"
)

const instrumentationName = "github.com/roach88/ledger/internal/engine"

// Committer makes a prepared change durable. *store.Store implements it.
type Committer interface {
	Commit(ctx context.Context, c ledger.Change, meta store.EventMeta) error
}

// Result is the outcome of one submitted request.
type Result struct {
	RequestID string
	Seq       int64 // 0 when the request failed
	ID        ledger.RecordID
	Event     ledger.Event
	Err       error
}

// Engine is the single-writer host for a ledger.
//
// Mutations are queued by Submit and applied one at a time by Run. For
// each request the loop prepares the change, commits it durably, applies
// it in memory under the write lock, hands the event to every sink and
// only then replies and moves on.
//
// Thread-safety model:
//   - Submit, Create, Update, Delete: safe from any goroutine
//   - Get, Snapshot, NextID, Digest: safe from any goroutine; they see the
//     state before or after a mutation, never in between
//   - Run: must be called from exactly one goroutine
type Engine struct {
	mu     sync.RWMutex
	ledger *ledger.Ledger

	store  Committer
	clock  *Clock
	queue  *requestQueue
	reqIDs RequestIDGenerator
	sinks  []EventSink

	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	mutations metric.Int64Counter
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithSinks registers event sinks, called in order.
func WithSinks(sinks ...EventSink) EngineOption {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithRequestIDs replaces the default UUIDv7 request id generator.
func WithRequestIDs(gen RequestIDGenerator) EngineOption {
	return func(e *Engine) {
		e.reqIDs = gen
	}
}

// WithClock resumes event sequencing from an existing clock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTracer sets the tracer used for per-request spans.
// Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithMeter sets the meter for the ledger.mutations counter.
// Default: the global otel meter provider.
func WithMeter(m metric.Meter) EngineOption {
	return func(e *Engine) {
		e.meter = m
	}
}

// New creates an Engine around l. A nil committer keeps the ledger purely
// in memory.
func New(l *ledger.Ledger, c Committer, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		ledger: l,
		store:  c,
		clock:  NewClock(),
		queue:  newRequestQueue(),
		reqIDs: UUIDv7Generator{},
		logger: slog.Default(),
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	for _, opt := range opts {
		opt(e)
	}

	counter, err := e.meter.Int64Counter("ledger.mutations",
		metric.WithDescription("Mutation requests processed, by op and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mutations counter: %w", err)
	}
	e.mutations = counter

	return e, nil
}

// Open loads the persisted state from s and returns an engine that
// resumes from it: same records, same allocator counter, same seq.
func Open(ctx context.Context, s *store.Store, opts ...EngineOption) (*Engine, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	l, err := ledger.Restore(snap.Records, snap.NextID)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	opts = append([]EngineOption{WithClock(NewClockAt(snap.LastSeq))}, opts...)
	return New(l, s, opts...)
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop is called.
//
// A request that has been dequeued always runs to completion; cancelling
// ctx only prevents further requests from starting. Requests still queued
// when the loop exits are answered with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "next_id", e.NextID(), "seq", e.clock.Current())

	for {
		if e.queue.Closed() {
			e.drain()
			e.logger.Info("engine stopping: queue closed")
			return nil
		}

		if req, ok := e.queue.TryDequeue(); ok {
			e.process(req)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// loop back to TryDequeue; a closed queue is handled at the top
		}
	}
}

// Stop closes the queue and answers queued requests with ErrStopped. It
// does not wait: a running Run returns after its in-flight request, if any.
// Both Stop and Run drain under the queue lock, so each request is answered
// once.
func (e *Engine) Stop() {
	e.queue.Close()
	e.drain()
}

func (e *Engine) drain() {
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		req.reply <- Result{RequestID: req.id, Err: ErrStopped}
	}
}

// Submit queues cmd and waits for its result.
//
// Cancelling ctx abandons the wait but not the request: once queued, the
// mutation is applied or rejected exactly as if the caller had waited.
func (e *Engine) Submit(ctx context.Context, cmd ledger.Command) (Result, error) {
	if cmd.Caller == "" {
		return Result{}, ErrUnauthenticated
	}

	req := &request{
		ctx:   context.WithoutCancel(ctx),
		cmd:   cmd,
		id:    e.reqIDs.Generate(),
		reply: make(chan Result, 1),
	}
	if !e.queue.Enqueue(req) {
		return Result{RequestID: req.id}, ErrStopped
	}

	select {
	case res := <-req.reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{RequestID: req.id}, ctx.Err()
	}
}

// Create submits a create and returns the new record id.
func (e *Engine) Create(ctx context.Context, caller ledger.Caller, f ledger.Fields) (ledger.RecordID, error) {
	res, err := e.Submit(ctx, ledger.Command{Op: ledger.OpCreate, Caller: caller, Fields: f})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

// Update submits an update replacing every field of record id.
func (e *Engine) Update(ctx context.Context, caller ledger.Caller, id ledger.RecordID, f ledger.Fields) error {
	_, err := e.Submit(ctx, ledger.Command{Op: ledger.OpUpdate, Caller: caller, ID: id, Fields: f})
	return err
}

// Delete submits a delete of record id.
func (e *Engine) Delete(ctx context.Context, caller ledger.Caller, id ledger.RecordID) error {
	_, err := e.Submit(ctx, ledger.Command{Op: ledger.OpDelete, Caller: caller, ID: id})
	return err
}

// Get returns a copy of record id.
func (e *Engine) Get(id ledger.RecordID) (ledger.Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Get(id)
}

// Snapshot returns every record, ascending by id.
func (e *Engine) Snapshot() []ledger.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Snapshot()
}

// NextID returns the raw allocator counter.
func (e *Engine) NextID() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.NextID()
}

// Digest returns the state digest.
func (e *Engine) Digest() (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Digest()
}

// LastSeq returns the seq of the most recent successful mutation.
func (e *Engine) LastSeq() int64 {
	return e.clock.Current()
}

// process handles one request end to end and replies.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(req *request) {
	op := string(req.cmd.Op)
	ctx, span := e.tracer.Start(req.ctx, "ledger."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("ledger.op", op),
			attribute.String("ledger.request_id", req.id),
		),
	)

	res := e.apply(ctx, req)

	outcome := "ok"
	if res.Err != nil {
		outcome = ErrorCode(res.Err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(
			attribute.Int64("ledger.seq", res.Seq),
			attribute.String("ledger.event", res.Event.String()),
		)
		span.SetStatus(codes.Ok, "")
	}
	e.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
	span.End()

	req.reply <- res
}

func (e *Engine) apply(ctx context.Context, req *request) Result {
	res := Result{RequestID: req.id}

	// Only this goroutine writes the ledger, so reading it here needs no lock.
	change, err := e.ledger.Prepare(req.cmd)
	if err != nil {
		e.logger.Info("mutation rejected",
			"request_id", req.id,
			"op", req.cmd.Op,
			"id", req.cmd.ID,
			"error", err,
		)
		res.Err = err
		return res
	}

	seq := e.clock.Peek()
	meta := store.EventMeta{Seq: seq, RequestID: req.id, Caller: req.cmd.Caller}

	if e.store != nil {
		if err := e.store.Commit(ctx, change, meta); err != nil {
			e.logger.Error("durable commit failed",
				"request_id", req.id,
				"event", change.Event.String(),
				"seq", seq,
				"error", err,
			)
			res.Err = &CommitError{Event: change.Event, RequestID: req.id, Err: err}
			return res
		}
	}

	e.mu.Lock()
	err = e.ledger.Commit(change)
	if err == nil {
		e.clock.Next()
	}
	e.mu.Unlock()
	if err != nil {
		// Unreachable while Run is the only writer.
		res.Err = fmt.Errorf("apply %s: %w", change.Event, err)
		return res
	}

	emitted := Emitted{Seq: seq, RequestID: req.id, Caller: req.cmd.Caller, Event: change.Event}
	for _, sink := range e.sinks {
		sink.Emit(emitted)
	}

	e.logger.Debug("mutation applied",
		"request_id", req.id,
		"event", change.Event.String(),
		"seq", seq,
	)

	res.Seq = seq
	res.ID = change.ID
	res.Event = change.Event
	return res
}
