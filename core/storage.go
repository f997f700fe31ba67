package core

// MemoryStore persists memory blocks and message history to a durable
// backend. The store is a passive collaborator: memory managers read and
// write through it only on explicit load/persist calls and never synchronize
// automatically.
//
// Implementations must be safe for concurrent use. Lookups for missing
// records return an error; use errors.Is against the backend's not-found
// sentinel to distinguish absence from infrastructure failures.
type MemoryStore interface {
	// SaveBlock inserts or replaces a block owned by the given agent.
	SaveBlock(agentID AgentID, block MemoryBlock) error
	// LoadBlock retrieves a single block by id.
	LoadBlock(blockID BlockID) (MemoryBlock, error)
	// LoadAgentBlocks retrieves all blocks owned by the given agent.
	LoadAgentBlocks(agentID AgentID) ([]MemoryBlock, error)
	// DeleteBlock removes a block by id.
	DeleteBlock(blockID BlockID) error
	// SaveMessage appends a message to the agent's history.
	SaveMessage(agentID AgentID, message MessageEntry) error
	// LoadMessages returns the agent's most recent messages in
	// chronological order. A non-positive limit returns all messages.
	LoadMessages(agentID AgentID, limit int) ([]MessageEntry, error)
	// SearchMessages returns the agent's messages whose content contains
	// the query substring, in chronological order.
	SearchMessages(agentID AgentID, query string) ([]MessageEntry, error)
	// DeleteAgentData removes all blocks and messages owned by the agent.
	DeleteAgentData(agentID AgentID) error
}
