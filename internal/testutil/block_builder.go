package testutil

import (
	"time"

	"github.com/hupe1980/agentcore/core"
)

// BlockBuilder provides a fluent helper for constructing memory blocks in
// tests. Example:
//
//	block := NewBlockBuilder("persona").Value("a helpful assistant").MaxSize(200).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type BlockBuilder struct {
	label        string
	value        string
	description  string
	maxSize      *int
	outOfContext bool
	updatedAt    *time.Time
	metadata     map[string]string
}

// NewBlockBuilder creates a builder for a block with the given label.
func NewBlockBuilder(label string) *BlockBuilder {
	return &BlockBuilder{label: label}
}

// Value sets the block's content (chainable).
func (b *BlockBuilder) Value(v string) *BlockBuilder { b.value = v; return b }

// Description sets the block's description (chainable).
func (b *BlockBuilder) Description(d string) *BlockBuilder { b.description = d; return b }

// MaxSize bounds the block's value size in bytes (chainable).
func (b *BlockBuilder) MaxSize(n int) *BlockBuilder { b.maxSize = &n; return b }

// OutOfContext marks the block as archived, outside the active window (chainable).
func (b *BlockBuilder) OutOfContext() *BlockBuilder { b.outOfContext = true; return b }

// UpdatedAt overrides the block's last-modified timestamp (chainable). Use in
// tests exercising staleness logic.
func (b *BlockBuilder) UpdatedAt(t time.Time) *BlockBuilder { b.updatedAt = &t; return b }

// AgedBy backdates the block's last-modified timestamp by the given duration
// (chainable).
func (b *BlockBuilder) AgedBy(d time.Duration) *BlockBuilder {
	t := time.Now().UTC().Add(-d)
	b.updatedAt = &t
	return b
}

// Meta sets a metadata key/value pair on the block (chainable).
func (b *BlockBuilder) Meta(key, value string) *BlockBuilder {
	if b.metadata == nil {
		b.metadata = map[string]string{}
	}
	b.metadata[key] = value
	return b
}

// Build constructs the core.MemoryBlock value.
func (b *BlockBuilder) Build() core.MemoryBlock {
	block := core.NewMemoryBlock(b.label, b.value)
	if b.description != "" {
		block.Description = b.description
	}
	if b.maxSize != nil {
		block.MaxSize = b.maxSize
	}
	if b.outOfContext {
		block.InContext = false
	}
	for k, v := range b.metadata {
		block.Metadata[k] = v
	}
	// Apply last so constructor-set timestamps do not clobber the override.
	if b.updatedAt != nil {
		block.UpdatedAt = *b.updatedAt
	}
	return block
}
