package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// DefaultMaxContextSize is the default context window budget in bytes.
const DefaultMaxContextSize = 8000

// Options configures an AgentMemory.
type Options struct {
	// MaxContextSize bounds the combined size of all in-context blocks.
	MaxContextSize int
	// Store is an optional durable backend used by LoadFromStore and
	// PersistToStore. Memory never synchronizes with it automatically.
	Store core.MemoryStore
	// Shared is an optional cross-agent block registry for shared
	// references.
	Shared *SharedMemoryStore
	// Logger receives structured memory activity.
	Logger logging.Logger
}

// AgentMemory manages one agent's memory: labeled blocks with explicit
// context membership, an append-only message history and references to
// shared blocks.
//
// The context budget is enforced only when a block enters the context window
// via MoveIntoContext; editing a block that is already in context may exceed
// the budget until the next move. Blocks are keyed by label, so creating a
// block under an existing label replaces it.
//
// Concurrency: protected by RWMutex. Accessors return defensive copies.
type AgentMemory struct {
	agentID core.AgentID
	opts    Options
	logger  logging.Logger

	mu         sync.RWMutex
	blocks     map[string]*core.MemoryBlock
	messages   []core.MessageEntry
	sharedRefs map[string]core.BlockID
}

// New creates an AgentMemory for the given agent.
func New(agentID core.AgentID, optFns ...func(o *Options)) *AgentMemory {
	opts := Options{
		MaxContextSize: DefaultMaxContextSize,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentMemory{
		agentID:    agentID,
		opts:       opts,
		logger:     opts.Logger,
		blocks:     make(map[string]*core.MemoryBlock),
		sharedRefs: make(map[string]core.BlockID),
	}
}

// AgentID returns the owning agent's id.
func (m *AgentMemory) AgentID() core.AgentID { return m.agentID }

// MaxContextSize returns the configured context budget in bytes.
func (m *AgentMemory) MaxContextSize() int { return m.opts.MaxContextSize }

// CreateBlock creates an in-context block with the given label and value,
// replacing any existing block under the same label. It returns the new
// block's id.
func (m *AgentMemory) CreateBlock(label, value string) core.BlockID {
	block := core.NewMemoryBlock(label, value)

	m.mu.Lock()
	m.blocks[label] = &block
	m.mu.Unlock()

	m.logger.Debug("memory block created", "agent_id", m.agentID, "label", label, "size", block.Size())

	return block.ID
}

// AddBlock inserts a pre-built block, replacing any existing block under the
// same label. The context budget is not checked here; budget enforcement
// happens when out-of-context blocks are moved in.
func (m *AgentMemory) AddBlock(block core.MemoryBlock) {
	stored := block.Clone()

	m.mu.Lock()
	m.blocks[stored.Label] = &stored
	m.mu.Unlock()

	m.logger.Debug("memory block added", "agent_id", m.agentID, "label", stored.Label, "size", stored.Size())
}

// GetBlock returns a copy of the block with the given label.
func (m *AgentMemory) GetBlock(label string) (core.MemoryBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, ok := m.blocks[label]
	if !ok {
		return core.MemoryBlock{}, fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	return block.Clone(), nil
}

// HasBlock reports whether a block with the given label exists.
func (m *AgentMemory) HasBlock(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blocks[label]

	return ok
}

// UpdateBlock replaces the value of the block with the given label, subject
// to the block's MaxSize bound.
func (m *AgentMemory) UpdateBlock(label, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	return block.UpdateValue(value)
}

// AppendToBlock joins content onto the labeled block's value with a newline
// separator, subject to the block's MaxSize bound.
func (m *AgentMemory) AppendToBlock(label, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	return block.Append(content)
}

// DeleteBlock removes the block with the given label.
func (m *AgentMemory) DeleteBlock(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[label]; !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	delete(m.blocks, label)

	return nil
}

// MoveIntoContext moves the labeled block into the context window. Moving a
// block that is already in context is a no-op. When the block's size plus
// the current in-context total would exceed the budget, the block stays out
// of context and ErrContextBudgetExceeded is returned.
func (m *AgentMemory) MoveIntoContext(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	if block.InContext {
		return nil
	}

	current := m.contextSizeLocked(label)
	if current+block.Size() > m.opts.MaxContextSize {
		return fmt.Errorf("%w: adding block %q would exceed max context size (%d + %d > %d)",
			ErrContextBudgetExceeded, label, current, block.Size(), m.opts.MaxContextSize)
	}

	block.SetInContext(true)

	m.logger.Debug("memory block moved into context", "agent_id", m.agentID, "label", label, "context_size", current+block.Size())

	return nil
}

// MoveOutOfContext moves the labeled block out of the context window. The
// block remains stored and can be moved back in later.
func (m *AgentMemory) MoveOutOfContext(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, label)
	}

	block.SetInContext(false)

	m.logger.Debug("memory block moved out of context", "agent_id", m.agentID, "label", label)

	return nil
}

// ContextSize returns the combined size in bytes of all in-context blocks.
func (m *AgentMemory) ContextSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.contextSizeLocked("")
}

// contextSizeLocked sums in-context block sizes, skipping the excluded
// label. Callers must hold at least a read lock.
func (m *AgentMemory) contextSizeLocked(exclude string) int {
	size := 0
	for label, block := range m.blocks {
		if label == exclude || !block.InContext {
			continue
		}
		size += block.Size()
	}

	return size
}

// ContextBlocks returns copies of all in-context blocks sorted by label.
func (m *AgentMemory) ContextBlocks() []core.MemoryBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0, len(m.blocks))
	for _, block := range m.blocks {
		if block.InContext {
			blocks = append(blocks, block.Clone())
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Label < blocks[j].Label })

	return blocks
}

// OutOfContextBlocks returns copies of all archived blocks sorted by label.
func (m *AgentMemory) OutOfContextBlocks() []core.MemoryBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0, len(m.blocks))
	for _, block := range m.blocks {
		if !block.InContext {
			blocks = append(blocks, block.Clone())
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Label < blocks[j].Label })

	return blocks
}

// ListBlocks returns copies of all blocks sorted by label, regardless of
// context membership.
func (m *AgentMemory) ListBlocks() []core.MemoryBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0, len(m.blocks))
	for _, block := range m.blocks {
		blocks = append(blocks, block.Clone())
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Label < blocks[j].Label })

	return blocks
}

// AddMessage appends a message to the agent's history and returns the
// created entry. The history is append-only; entries are never mutated or
// removed.
func (m *AgentMemory) AddMessage(role, content string) core.MessageEntry {
	entry := core.NewMessageEntry(role, content)

	m.mu.Lock()
	m.messages = append(m.messages, entry)
	m.mu.Unlock()

	return entry.Clone()
}

// MessageCount returns the number of messages in the history.
func (m *AgentMemory) MessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.messages)
}

// Messages returns copies of all history entries in chronological order.
func (m *AgentMemory) Messages() []core.MessageEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]core.MessageEntry, len(m.messages))
	for i, msg := range m.messages {
		messages[i] = msg.Clone()
	}

	return messages
}

// RecentMessages returns copies of the last n history entries in
// chronological order. When n exceeds the history length the whole history
// is returned.
func (m *AgentMemory) RecentMessages(n int) []core.MessageEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 {
		return []core.MessageEntry{}
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}

	messages := make([]core.MessageEntry, 0, n)
	for _, msg := range m.messages[len(m.messages)-n:] {
		messages = append(messages, msg.Clone())
	}

	return messages
}

// SearchMessages returns copies of history entries whose content contains
// the query, in chronological order. The match is a case sensitive substring
// match.
func (m *AgentMemory) SearchMessages(query string) []core.MessageEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]core.MessageEntry, 0)
	for _, msg := range m.messages {
		if strings.Contains(msg.Content, query) {
			matches = append(matches, msg.Clone())
		}
	}

	return matches
}

// AttachSharedBlock records a named reference to a block in the shared
// registry. The reference is resolved live on every read, so the id does not
// need to exist yet at attach time.
func (m *AgentMemory) AttachSharedBlock(name string, blockID core.BlockID) error {
	if m.opts.Shared == nil {
		return fmt.Errorf("no shared memory store configured")
	}

	m.mu.Lock()
	m.sharedRefs[name] = blockID
	m.mu.Unlock()

	return nil
}

// DetachSharedBlock drops a named shared reference. Detaching an unknown
// name is a no-op.
func (m *AgentMemory) DetachSharedBlock(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sharedRefs, name)
}

// SharedBlock resolves a named reference against the shared registry and
// returns a copy of the block's current value.
func (m *AgentMemory) SharedBlock(name string) (core.MemoryBlock, error) {
	if m.opts.Shared == nil {
		return core.MemoryBlock{}, fmt.Errorf("no shared memory store configured")
	}

	m.mu.RLock()
	blockID, ok := m.sharedRefs[name]
	m.mu.RUnlock()

	if !ok {
		return core.MemoryBlock{}, fmt.Errorf("%w: %q", ErrSharedBlockNotFound, name)
	}

	return m.opts.Shared.Get(blockID)
}

// SharedBlocks resolves all named references and returns copies of the
// blocks that still exist in the registry. References whose block has been
// removed are silently omitted.
func (m *AgentMemory) SharedBlocks() []core.MemoryBlock {
	if m.opts.Shared == nil {
		return []core.MemoryBlock{}
	}

	m.mu.RLock()
	ids := make([]core.BlockID, 0, len(m.sharedRefs))
	for _, id := range m.sharedRefs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0, len(ids))
	for _, id := range ids {
		block, err := m.opts.Shared.Get(id)
		if err != nil {
			continue
		}
		blocks = append(blocks, block)
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Label < blocks[j].Label })

	return blocks
}

// SharedRefs returns a copy of the named shared-block references.
func (m *AgentMemory) SharedRefs() map[string]core.BlockID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make(map[string]core.BlockID, len(m.sharedRefs))
	for name, id := range m.sharedRefs {
		refs[name] = id
	}

	return refs
}

// LoadFromStore replaces the in-process blocks and history with the agent's
// persisted state from the durable store.
func (m *AgentMemory) LoadFromStore() error {
	if m.opts.Store == nil {
		return fmt.Errorf("no durable store configured")
	}

	blocks, err := m.opts.Store.LoadAgentBlocks(m.agentID)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	messages, err := m.opts.Store.LoadMessages(m.agentID, 0)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	m.mu.Lock()
	m.blocks = make(map[string]*core.MemoryBlock, len(blocks))
	for _, block := range blocks {
		stored := block.Clone()
		m.blocks[stored.Label] = &stored
	}
	m.messages = messages
	m.mu.Unlock()

	m.logger.Info("agent memory loaded", "agent_id", m.agentID, "blocks", len(blocks), "messages", len(messages))

	return nil
}

// PersistToStore writes all blocks and history entries to the durable store.
// Stores upsert by id, so persisting repeatedly does not duplicate records.
func (m *AgentMemory) PersistToStore() error {
	if m.opts.Store == nil {
		return fmt.Errorf("no durable store configured")
	}

	m.mu.RLock()
	blocks := make([]core.MemoryBlock, 0, len(m.blocks))
	for _, block := range m.blocks {
		blocks = append(blocks, block.Clone())
	}
	messages := make([]core.MessageEntry, len(m.messages))
	for i, msg := range m.messages {
		messages[i] = msg.Clone()
	}
	m.mu.RUnlock()

	for _, block := range blocks {
		if err := m.opts.Store.SaveBlock(m.agentID, block); err != nil {
			return fmt.Errorf("save block %q: %w", block.Label, err)
		}
	}

	for _, msg := range messages {
		if err := m.opts.Store.SaveMessage(m.agentID, msg); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}
	}

	m.logger.Info("agent memory persisted", "agent_id", m.agentID, "blocks", len(blocks), "messages", len(messages))

	return nil
}
