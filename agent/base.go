package agent

import (
	"fmt"

	"github.com/hupe1980/agentcore/core"
)

// Base bundles the identity shared by concrete agent implementations: a
// generated id, a human-readable name and a description. Embed it in concrete
// agent implementations and supply an Execute method to satisfy the
// core.Agent interface.
type Base struct {
	id          core.AgentID // Generated at construction, never changes
	name        string       // Human-readable name
	description string       // Detailed description of agent's purpose
}

// NewBase constructs a Base with a generated description (customizable via
// SetDescription).
func NewBase(name string) Base {
	return Base{
		id:          core.NewAgentID(),
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// ID returns the agent's unique identifier.
func (b *Base) ID() core.AgentID { return b.id }

// Name returns the human-readable name for this agent.
func (b *Base) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *Base) Description() string { return b.description }

// SetDescription updates the agent's description.
// This is useful for providing more detailed information about the agent's capabilities.
func (b *Base) SetDescription(desc string) { b.description = desc }
