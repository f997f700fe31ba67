package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// Options configures an Executor instance using the functional options
// pattern.
//
// Example:
//
//	exec := executor.New(func(o *executor.Options) {
//	    o.Logger = myLogger
//	})
type Options struct {
	// Logger receives run lifecycle diagnostics. Defaults to a NoOp logger
	// so the executor has no logging dependencies unless one is provided.
	Logger logging.Logger
}

// backgroundRun bundles everything the registry tracks for one run: its
// metadata snapshot, the ordered event log, the cancellation hook for its
// goroutine and the completion handoff state.
//
// All fields except done are guarded by the owning Executor's mutex. The
// done channel is created once at registration and closed exactly once by
// the run's goroutine when the unit of work finishes.
type backgroundRun struct {
	metadata core.RunMetadata
	events   []core.RunEvent

	cancel context.CancelFunc
	done   chan struct{}

	// Result of the unit of work, populated before done is closed.
	output  *core.AgentOutput
	execErr error

	// claimed marks the completion ticket as consumed, either by the first
	// WaitForCompletion caller or by CancelRun. It is never reset.
	claimed bool
}

// Executor schedules and tracks background agent runs.
//
// The Executor serves as the run registry for the AgentCore runtime. Callers
// submit work via ExecuteAsync and get back a RunID immediately; the run
// itself executes on its own goroutine, appending events to an ordered log
// that observers read through StreamEvents or GetEventsPaginated.
//
// Concurrency Model:
//   - A single RWMutex guards the registry; every mutation is one atomic
//     update under it, so reads always observe consistent snapshots
//   - Each run executes on a dedicated goroutine whose context derives from
//     the executor, not from the submitting caller
//   - Per-run sequence ids are assigned under the registry lock, which keeps
//     them strictly increasing and gap-free
//
// Completion Handoff:
//   - WaitForCompletion atomically claims the run's completion ticket; the
//     first claimant wins and later calls fail with ErrHandleTaken
//   - CancelRun consumes the same ticket before aborting the run, so a run
//     already claimed by a waiter can no longer be cancelled
//
// The zero value is not usable; construct instances with New.
type Executor struct {
	// Logger - immutable after construction
	logger logging.Logger

	// Run registry - protected by mu
	mu   sync.RWMutex
	runs map[core.RunID]*backgroundRun

	// Lifecycle - base context parents every run's context so Close can
	// cancel all in-flight work at once
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// New creates an Executor ready to accept runs.
//
// The constructor uses the functional options pattern. Without options the
// executor logs nothing; provide a Logger to observe run transitions.
//
// The returned Executor is safe for concurrent use. Callers that create
// runs should eventually call Close to stop in-flight work during shutdown.
//
// Example:
//
//	exec := executor.New(func(o *executor.Options) {
//	    o.Logger = logging.NewDefaultSlogLogger()
//	})
//	defer exec.Close()
func New(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Executor{
		logger:     opts.Logger,
		runs:       make(map[core.RunID]*backgroundRun),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// ExecuteAsync registers a new run for the given agent and input and returns
// its id without waiting for execution.
//
// The run starts in status Queued. A dedicated goroutine transitions it to
// Running, appends a Started event, invokes the agent, and finishes the run
// as Completed (appending Output and Completed events) or Failed (appending
// a Failed event carrying the error).
//
// The run is deliberately not bound to any caller context: submitting work
// and observing it are separate concerns, and a run outlives the request
// that created it. Use CancelRun to abort a single run or Close to stop
// everything.
//
// A panic inside the agent does not crash the process; it is recovered and
// recorded as a run failure wrapping ErrTaskFailure.
//
// Returns ErrClosed after Close has been called.
func (e *Executor) ExecuteAsync(agent core.Agent, input string) (core.RunID, error) {
	if agent == nil {
		return "", fmt.Errorf("agent must not be nil")
	}

	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return "", ErrClosed
	}

	runID := core.NewRunID()
	runCtx, cancel := context.WithCancel(e.baseCtx)

	run := &backgroundRun{
		metadata: core.RunMetadata{
			RunID:     runID,
			AgentName: agent.Name(),
			Input:     input,
			Status:    core.RunStatusQueued,
			CreatedAt: time.Now().UTC(),
			Metadata:  map[string]string{},
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	e.runs[runID] = run
	e.wg.Add(1)

	e.mu.Unlock()

	e.logger.Debug("executor.run.queued run_id=%s agent=%s", runID, agent.Name())

	go e.execute(runCtx, run, agent, input)

	return runID, nil
}

// execute is the body of a run's goroutine. It drives the run through its
// lifecycle and always closes the run's done channel, even on panic.
func (e *Executor) execute(ctx context.Context, run *backgroundRun, agent core.Agent, input string) {
	defer e.wg.Done()
	defer run.cancel()

	if !e.begin(run, agent, input) {
		// Cancelled before execution began; nothing to invoke.
		e.finish(run, nil, ctx.Err())
		return
	}

	record := func(eventType core.RunEventType, data map[string]any) {
		e.appendEvent(run, eventType, data)
	}

	runCtx := core.NewRunContext(
		ctx,
		run.metadata.RunID,
		core.AgentInfo{ID: agent.ID(), Name: agent.Name()},
		input,
		record,
		e.logger,
	)

	output, err := e.invoke(runCtx, agent)

	e.finish(run, output, err)
}

// begin transitions the run to Running and appends the Started event. It
// reports false when the run was cancelled before execution could start.
func (e *Executor) begin(run *backgroundRun, agent core.Agent, input string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run.metadata.Status.Terminal() {
		return false
	}

	now := time.Now().UTC()
	run.metadata.Status = core.RunStatusRunning
	run.metadata.StartedAt = &now

	e.appendEventLocked(run, core.RunEventStarted, map[string]any{
		"agent": agent.Name(),
		"input": input,
	})

	e.logger.Debug("executor.run.started run_id=%s agent=%s", run.metadata.RunID, agent.Name())

	return true
}

// invoke calls the agent, converting a panic into an ErrTaskFailure error so
// a misbehaving agent cannot take down the executor.
func (e *Executor) invoke(runCtx *core.RunContext, agent core.Agent) (output *core.AgentOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("%w: agent %s panicked: %v", ErrTaskFailure, agent.Name(), r)
			e.logger.Error("executor.run.panic run_id=%s agent=%s panic=%v", runCtx.RunID, agent.Name(), r)
		}
	}()

	return agent.Execute(runCtx)
}

// finish records the unit of work's result and closes the run's done
// channel. If the run is already terminal (cancelled while executing) the
// metadata and event log stay untouched; only the handoff state is filled.
func (e *Executor) finish(run *backgroundRun, output *core.AgentOutput, err error) {
	e.mu.Lock()

	run.output = output
	run.execErr = err

	if !run.metadata.Status.Terminal() {
		now := time.Now().UTC()
		run.metadata.CompletedAt = &now

		if err != nil {
			run.metadata.Status = core.RunStatusFailed
			run.metadata.Error = err.Error()

			e.appendEventLocked(run, core.RunEventFailed, map[string]any{
				"error": err.Error(),
			})
		} else {
			run.metadata.Status = core.RunStatusCompleted

			content := ""
			if output != nil {
				content = output.Content
			}

			toolCalls := 0
			for _, ev := range run.events {
				if ev.Type == core.RunEventToolCall {
					toolCalls++
				}
			}

			e.appendEventLocked(run, core.RunEventOutput, map[string]any{
				"content":    content,
				"tool_calls": toolCalls,
			})
			e.appendEventLocked(run, core.RunEventCompleted, map[string]any{})
		}
	}

	status := run.metadata.Status
	total := run.metadata.TotalEvents

	e.mu.Unlock()

	close(run.done)

	e.logger.Info("executor.run.finished run_id=%s status=%s events=%d", run.metadata.RunID, status, total)
}

// appendEvent appends an event to the run's log unless the run has already
// reached a terminal state. Late events from an agent that has not yet
// observed cancellation are dropped rather than reopening a closed log.
func (e *Executor) appendEvent(run *backgroundRun, eventType core.RunEventType, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run.metadata.Status.Terminal() {
		return
	}

	e.appendEventLocked(run, eventType, data)
}

// appendEventLocked assigns the next sequence id and appends the event.
// Callers must hold e.mu.
func (e *Executor) appendEventLocked(run *backgroundRun, eventType core.RunEventType, data map[string]any) {
	event := core.RunEvent{
		SeqID:     run.metadata.LastSeqID,
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Data:      data,
	}

	run.events = append(run.events, event)
	run.metadata.LastSeqID = run.metadata.LastSeqID.Next()
	run.metadata.TotalEvents++
}

// GetRunMetadata returns a point-in-time snapshot of a run's metadata.
//
// The snapshot is a frozen copy; mutating it has no effect on the registry.
// Returns ErrNotFound when the id is unknown.
func (e *Executor) GetRunMetadata(id core.RunID) (core.RunMetadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	run, ok := e.runs[id]
	if !ok {
		return core.RunMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return run.metadata.Clone(), nil
}

// StreamEvents returns a run's events in ascending sequence order.
//
// When after is nil the full log is returned. Otherwise only events with a
// sequence id strictly greater than after are included, which makes this
// the resume primitive: a disconnected observer passes its last-seen
// sequence id and receives exactly the events it missed.
//
// The returned events are copies; the registry's log cannot be mutated
// through them. Returns ErrNotFound when the id is unknown.
func (e *Executor) StreamEvents(id core.RunID, after *core.SeqID) ([]core.RunEvent, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	run, ok := e.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	events := make([]core.RunEvent, 0, len(run.events))

	for _, ev := range run.events {
		if after != nil && ev.SeqID <= *after {
			continue
		}

		events = append(events, ev.Clone())
	}

	return events, nil
}

// GetEventsPaginated walks a run's event log page by page.
//
// The page starts at the first event with a sequence id strictly greater
// than cursor (or at the log's start when cursor is nil) and holds at most
// limit events; a non-positive limit returns everything remaining. The
// returned page's NextCursor feeds the next call, and HasMore reports
// whether events beyond this page already exist.
//
// Returns ErrNotFound when the id is unknown.
func (e *Executor) GetEventsPaginated(id core.RunID, cursor *core.SeqID, limit int) (core.EventPage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	run, ok := e.runs[id]
	if !ok {
		return core.EventPage{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	start := 0

	if cursor != nil {
		start = len(run.events)

		for i, ev := range run.events {
			if ev.SeqID > *cursor {
				start = i
				break
			}
		}
	}

	end := len(run.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	events := make([]core.RunEvent, 0, end-start)
	for _, ev := range run.events[start:end] {
		events = append(events, ev.Clone())
	}

	page := core.EventPage{
		Events:      events,
		HasMore:     end < len(run.events),
		TotalEvents: run.metadata.TotalEvents,
	}

	if len(events) > 0 {
		last := events[len(events)-1].SeqID
		page.NextCursor = &last
	}

	return page, nil
}

// WaitForCompletion blocks until the run finishes and returns its output.
//
// The call claims the run's completion ticket atomically; the first caller
// wins. Any later call, and any call after CancelRun consumed the ticket,
// fails immediately with ErrHandleTaken instead of hanging or returning
// stale data. The claim is permanent: it is not released when ctx expires
// before the run finishes, so the result of a run can be consumed at most
// once.
//
// Returns the agent's output on success, the run's failure otherwise. A
// recovered agent panic surfaces here as an error wrapping ErrTaskFailure.
// Returns ErrNotFound when the id is unknown and ctx.Err() when the caller's
// context ends first.
func (e *Executor) WaitForCompletion(ctx context.Context, id core.RunID) (*core.AgentOutput, error) {
	e.mu.Lock()

	run, ok := e.runs[id]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if run.claimed {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrHandleTaken, id)
	}

	run.claimed = true

	e.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-run.done:
	}

	e.mu.RLock()
	output, err := run.output, run.execErr
	e.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	return output, nil
}

// CancelRun aborts a run that is still owned by the registry.
//
// If the run's completion ticket is unclaimed, CancelRun consumes it,
// cancels the run's context, sets status Cancelled and appends a terminal
// Failed event with reason "Cancelled by user". The run's goroutine winds
// down on its own once it observes the cancellation.
//
// Cancelling a run that already reached a terminal state is a no-op: the
// status and event log stay exactly as they were. Likewise, once a waiter
// holds the ticket the run belongs to that caller and CancelRun does
// nothing. Returns ErrNotFound when the id is unknown.
func (e *Executor) CancelRun(id core.RunID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if run.metadata.Status.Terminal() {
		return nil
	}

	if run.claimed {
		return nil
	}

	run.claimed = true
	run.cancel()

	now := time.Now().UTC()
	run.metadata.Status = core.RunStatusCancelled
	run.metadata.CompletedAt = &now

	e.appendEventLocked(run, core.RunEventFailed, map[string]any{
		"error": "Cancelled by user",
	})

	e.logger.Info("executor.run.cancelled run_id=%s", id)

	return nil
}

// ListRuns returns metadata snapshots for every tracked run, ordered by
// creation time (run id breaks ties). The snapshots are frozen copies.
func (e *Executor) ListRuns() []core.RunMetadata {
	e.mu.RLock()
	defer e.mu.RUnlock()

	list := make([]core.RunMetadata, 0, len(e.runs))

	for _, run := range e.runs {
		list = append(list, run.metadata.Clone())
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}

		return list[i].RunID < list[j].RunID
	})

	return list
}

// CleanupOldRuns removes terminal runs whose completion timestamp is older
// than now minus retention and reports how many were removed. Runs that are
// still queued or running are never touched.
func (e *Executor) CleanupOldRuns(retention time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0

	for id, run := range e.runs {
		if !run.metadata.Status.Terminal() {
			continue
		}

		if run.metadata.CompletedAt == nil || !run.metadata.CompletedAt.Before(cutoff) {
			continue
		}

		delete(e.runs, id)
		removed++
	}

	if removed > 0 {
		e.logger.Debug("executor.cleanup removed=%d", removed)
	}

	return removed
}

// Close shuts the executor down: it rejects new submissions, cancels every
// in-flight run and blocks until their goroutines finish. Terminal run
// metadata stays readable afterwards. Close is idempotent.
func (e *Executor) Close() {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return
	}

	e.closed = true

	e.mu.Unlock()

	e.baseCancel()
	e.wg.Wait()
}
