// Package memory implements the agent-side memory model: labeled, budgeted
// memory blocks with explicit context membership, an append-only message
// history and optional references to cross-agent shared blocks.
//
// The AgentMemory manager enforces the context budget when a block enters the
// context window (MoveIntoContext) and delegates durable persistence to a
// core.MemoryStore selected at wiring time. SharedMemoryStore provides a
// process-local registry for blocks referenced by several agents at once;
// reads through a reference always observe the owner's latest value.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (SQLite, remote stores) to be added without introducing dependency
// cycles.
package memory
