package core

import (
	"fmt"
	"time"
)

// MemoryBlock is a labeled, editable unit of agent memory. Blocks marked
// InContext are part of the agent's active context window and count against
// the memory manager's context budget; blocks out of context remain stored
// but invisible to the agent.
//
// A block's value may be bounded by MaxSize. Updates that would exceed the
// bound fail and leave the block unchanged.
type MemoryBlock struct {
	// ID uniquely identifies the block.
	ID BlockID `json:"id"`
	// Label names the block's purpose (e.g. "persona", "human").
	Label string `json:"label"`
	// Description explains the block's content for the agent.
	Description string `json:"description,omitempty"`
	// Value is the block's current content.
	Value string `json:"value"`
	// MaxSize bounds the value's size in bytes; nil means unbounded.
	MaxSize *int `json:"max_size,omitempty"`
	// InContext marks the block as part of the active context window.
	InContext bool `json:"in_context"`
	// CreatedAt records when the block was created (UTC).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt records the block's last mutation (UTC).
	UpdatedAt time.Time `json:"updated_at"`
	// Metadata holds caller-supplied key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewMemoryBlock creates a block with the given label and initial value. New
// blocks start in-context with a fresh id and timestamps.
func NewMemoryBlock(label, value string) MemoryBlock {
	now := time.Now().UTC()
	return MemoryBlock{
		ID:        NewBlockID(),
		Label:     label,
		Value:     value,
		InContext: true,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]string{},
	}
}

// NewMemoryBlockWithDescription creates a block with a label, a description
// and an initial value.
func NewMemoryBlockWithDescription(label, description, value string) MemoryBlock {
	block := NewMemoryBlock(label, value)
	block.Description = description
	return block
}

// UpdateValue replaces the block's value. When the new value exceeds MaxSize
// the block is left unchanged and ErrBlockSizeExceeded is returned.
func (b *MemoryBlock) UpdateValue(value string) error {
	if b.MaxSize != nil && len(value) > *b.MaxSize {
		return fmt.Errorf("%w: value exceeds max size %d (got %d)", ErrBlockSizeExceeded, *b.MaxSize, len(value))
	}
	b.Value = value
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Append joins content onto the value with a newline separator, subject to
// the same MaxSize bound as UpdateValue.
func (b *MemoryBlock) Append(content string) error {
	return b.UpdateValue(fmt.Sprintf("%s\n%s", b.Value, content))
}

// SetInContext updates context membership and bumps UpdatedAt.
func (b *MemoryBlock) SetInContext(inContext bool) {
	b.InContext = inContext
	b.UpdatedAt = time.Now().UTC()
}

// Size returns the size of the block's value in bytes.
func (b *MemoryBlock) Size() int { return len(b.Value) }

// Clone returns a deep copy of the block safe for independent mutation.
func (b MemoryBlock) Clone() MemoryBlock {
	clone := b
	if b.MaxSize != nil {
		maxSize := *b.MaxSize
		clone.MaxSize = &maxSize
	}
	if b.Metadata != nil {
		clone.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
