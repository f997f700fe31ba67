// Package agent contains first-class agent implementations for the AgentCore
// background execution runtime. The package focuses on two concerns:
//
//  1. Shared identity plumbing (Base)
//  2. Model-centric conversational agent (ModelAgent)
//
// Design principles:
//   - Minimal hidden global state – explicit wiring via Executor/RunContext
//   - Observability – run progress surfaces as Thought and Progress events
//   - Extensibility – embed Base; only implement Execute plus any custom API
//
// Execution Model:
//   - An agent's Execute receives a *core.RunContext scoped to one run
//   - ModelAgent renders in-context memory blocks into its instructions,
//     drives one completion against a model.Model and records the exchange
//     into the agent's memory
//
// The package intentionally keeps persistence and model specifics in their
// respective packages to avoid cyclic deps.
package agent
