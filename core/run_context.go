package core

import (
	"context"

	"github.com/hupe1980/agentcore/logging"
)

// RecordFunc appends an event of the given type to the owning run's ordered
// log. Implementations assign sequence ids; agents never pick their own.
type RecordFunc func(eventType RunEventType, data map[string]any)

// RunContext carries execution state & helpers for one background run.
// It encapsulates the per-run execution scope passed to an Agent's Execute
// method. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (RunID, Agent info)
//   - The original Input the run was started with
//   - An event recording hook feeding the run's ordered log
//
// Intermediate progress recorded via the Record* helpers becomes visible to
// observers streaming the run's events while the agent is still executing.
type RunContext struct {
	Context context.Context
	RunID   RunID
	Agent   AgentInfo
	Input   string

	record RecordFunc

	*loggerAdapter
}

// NewRunContext constructs a RunContext bound to a run's recording hook.
func NewRunContext(
	ctx context.Context,
	runID RunID,
	agent AgentInfo,
	input string,
	record RecordFunc,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		Agent:         agent,
		Input:         input,
		record:        record,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetAgentName returns the logical agent name for this run.
func (rc *RunContext) GetAgentName() string { return rc.Agent.Name }

// RecordThought appends a Thought event carrying intermediate reasoning text.
func (rc *RunContext) RecordThought(text string) {
	rc.recordEvent(RunEventThought, map[string]any{"text": text})
}

// RecordProgress appends a Progress event with an arbitrary payload.
func (rc *RunContext) RecordProgress(data map[string]any) {
	rc.recordEvent(RunEventProgress, data)
}

// RecordToolCall appends a ToolCall event describing a tool invocation.
func (rc *RunContext) RecordToolCall(name string, args map[string]any) {
	rc.recordEvent(RunEventToolCall, map[string]any{"name": name, "args": args})
}

// RecordToolResult appends a ToolResult event with a tool invocation's outcome.
func (rc *RunContext) RecordToolResult(name string, result any, err error) {
	data := map[string]any{"name": name, "result": result}
	if err != nil {
		data["error"] = err.Error()
	}

	rc.recordEvent(RunEventToolResult, data)
}

func (rc *RunContext) recordEvent(eventType RunEventType, data map[string]any) {
	if rc.record == nil {
		return
	}

	rc.record(eventType, data)
}
