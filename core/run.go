package core

import "time"

// RunStatus describes the lifecycle state of a background run.
//
// Runs move Queued -> Running -> one of the terminal states. Terminal runs
// are immutable: no further events are appended and the status never changes
// again.
type RunStatus string

const (
	// RunStatusQueued marks a run that is registered but not yet executing.
	RunStatusQueued RunStatus = "queued"
	// RunStatusRunning marks a run whose agent is currently executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted marks a run that finished successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed marks a run that finished with an error.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled marks a run stopped on request before finishing.
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the status as a plain string.
func (s RunStatus) String() string { return string(s) }

// RunEventType classifies entries in a run's ordered event log.
type RunEventType string

const (
	// RunEventStarted is emitted once when execution begins.
	RunEventStarted RunEventType = "started"
	// RunEventThought carries intermediate reasoning text from the agent.
	RunEventThought RunEventType = "thought"
	// RunEventToolCall records an outgoing tool invocation.
	RunEventToolCall RunEventType = "tool_call"
	// RunEventToolResult records a tool invocation's outcome.
	RunEventToolResult RunEventType = "tool_result"
	// RunEventOutput carries the run's final produced content.
	RunEventOutput RunEventType = "output"
	// RunEventCompleted is the log's closing entry on success.
	RunEventCompleted RunEventType = "completed"
	// RunEventFailed is the log's closing entry on failure or cancellation.
	RunEventFailed RunEventType = "failed"
	// RunEventProgress carries arbitrary intermediate progress payloads.
	RunEventProgress RunEventType = "progress"
)

// RunEvent is a single immutable entry in a run's event log. Events are
// appended in the order they occur; SeqID totally orders them within the run.
type RunEvent struct {
	// SeqID is the event's position in the run's log, starting at 0.
	SeqID SeqID `json:"seq_id"`
	// Timestamp records when the event was appended (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Type classifies the event.
	Type RunEventType `json:"type"`
	// Data is the type-specific payload.
	Data map[string]any `json:"data,omitempty"`
}

// Clone returns a deep copy of the event safe for external mutation.
func (e RunEvent) Clone() RunEvent {
	clone := e
	if e.Data != nil {
		clone.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			clone.Data[k] = v
		}
	}
	return clone
}

// RunMetadata is a point-in-time snapshot of a run's bookkeeping state. It is
// always returned by value so callers can never mutate registry internals.
type RunMetadata struct {
	// RunID identifies the run.
	RunID RunID `json:"run_id"`
	// AgentName names the agent executing the run.
	AgentName string `json:"agent_name"`
	// Input is the original input the run was started with.
	Input string `json:"input"`
	// Status is the run's lifecycle state at snapshot time.
	Status RunStatus `json:"status"`
	// Error carries the failure reason when Status is Failed.
	Error string `json:"error,omitempty"`
	// CreatedAt records when the run was registered.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt records when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt records when the run reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// TotalEvents is the number of events appended so far.
	TotalEvents int `json:"total_events"`
	// LastSeqID is the next sequence id to be assigned. It equals the
	// number of events appended so far.
	LastSeqID SeqID `json:"last_seq_id"`
	// Metadata holds caller-supplied key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the metadata safe for external mutation.
func (m RunMetadata) Clone() RunMetadata {
	clone := m
	if m.StartedAt != nil {
		t := *m.StartedAt
		clone.StartedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		clone.CompletedAt = &t
	}
	if m.Metadata != nil {
		clone.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// EventPage is one page of a run's event log retrieved via cursor pagination.
// Passing NextCursor as the after-cursor of the following call resumes the
// stream exactly where this page ended.
type EventPage struct {
	// Events holds the page's entries in ascending SeqID order.
	Events []RunEvent `json:"events"`
	// NextCursor is the SeqID of the last event in the page, or nil when
	// the page is empty.
	NextCursor *SeqID `json:"next_cursor,omitempty"`
	// HasMore reports whether events beyond this page already exist.
	HasMore bool `json:"has_more"`
	// TotalEvents is the run's total event count at retrieval time.
	TotalEvents int `json:"total_events"`
}
