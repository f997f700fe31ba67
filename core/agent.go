package core

// Agent defines the interface for units of work driven by the background
// executor.
//
// Agents receive a RunContext carrying the run's input, identifiers,
// cancellation signal and event recording hooks. They perform their work
// (typically one or more completion calls against a model backend) and return
// a final output.
//
// Implementations must:
//   - Respect context cancellation and return promptly once the run's
//     context is done
//   - Surface intermediate progress via the RunContext Record* helpers
//   - Be safe for concurrent Execute calls from multiple runs
type Agent interface {
	// ID returns the agent's unique identifier.
	ID() AgentID
	// Name returns the agent's human-readable name.
	Name() string
	// Execute performs the agent's work for one run.
	Execute(runCtx *RunContext) (*AgentOutput, error)
}

// AgentInfo carries identifying details about an agent used in run contexts
// and event payloads.
type AgentInfo struct {
	ID   AgentID
	Name string
}

// AgentOutput is the final result of a run.
type AgentOutput struct {
	// Content is the produced output text.
	Content string `json:"content"`
	// Metadata carries provider or latency details about the execution.
	Metadata map[string]string `json:"metadata,omitempty"`
}
