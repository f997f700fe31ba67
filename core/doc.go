// Package core provides the foundational domain types, interfaces and execution
// contexts used by AgentCore. It defines the core abstractions for:
//
//   - Agents (units of background work driven by the executor)
//   - Runs (tracked background executions with ordered, resumable event logs)
//   - Memory blocks and message entries (budgeted, editable agent memory)
//   - RunContext (scoped execution handle passed to an agent's Execute)
//   - A pluggable durable store for memory persistence
//
// The package intentionally keeps implementation concerns (the run registry,
// concrete memory managers, storage backends) out of scope, exposing small
// interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
