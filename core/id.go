package core

import "github.com/google/uuid"

// RunID uniquely identifies a background run across its whole lifecycle.
type RunID string

// NewRunID generates a new globally unique run identifier.
func NewRunID() RunID { return RunID(uuid.NewString()) }

// String returns the identifier as a plain string.
func (id RunID) String() string { return string(id) }

// SeqID is a per-run event sequence number. Within one run sequence ids are
// strictly increasing integers starting at zero with no gaps or duplicates,
// which makes a SeqID usable as a resumption cursor into the run's event log.
type SeqID uint64

// Next returns the sequence id following this one.
func (s SeqID) Next() SeqID { return s + 1 }

// AgentID uniquely identifies an agent instance.
type AgentID string

// NewAgentID generates a new globally unique agent identifier.
func NewAgentID() AgentID { return AgentID(uuid.NewString()) }

// String returns the identifier as a plain string.
func (id AgentID) String() string { return string(id) }

// BlockID uniquely identifies a memory block.
type BlockID string

// NewBlockID generates a new globally unique block identifier.
func NewBlockID() BlockID { return BlockID(uuid.NewString()) }

// String returns the identifier as a plain string.
func (id BlockID) String() string { return string(id) }

// NewID generates a generic unique identifier (messages, checkpoints).
func NewID() string { return uuid.NewString() }
