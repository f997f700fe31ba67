package storage

import (
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// storedBlock couples a block with its owning agent for id-based lookups.
type storedBlock struct {
	agentID core.AgentID
	block   core.MemoryBlock
}

// InMemoryStore is a process-local core.MemoryStore. It keeps all records on
// the heap and loses them when the process exits; use the sqlite subpackage
// for durability.
//
// Concurrency: protected by RWMutex. All reads return defensive copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	blocks   map[core.BlockID]storedBlock
	messages map[core.AgentID][]core.MessageEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		blocks:   make(map[core.BlockID]storedBlock),
		messages: make(map[core.AgentID][]core.MessageEntry),
	}
}

// SaveBlock inserts or replaces a block by id.
func (s *InMemoryStore) SaveBlock(agentID core.AgentID, block core.MemoryBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks[block.ID] = storedBlock{agentID: agentID, block: block.Clone()}

	return nil
}

// LoadBlock retrieves a single block by id.
func (s *InMemoryStore) LoadBlock(blockID core.BlockID) (core.MemoryBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.blocks[blockID]
	if !ok {
		return core.MemoryBlock{}, ErrNotFound
	}

	return stored.block.Clone(), nil
}

// LoadAgentBlocks retrieves all blocks owned by the agent, oldest first.
func (s *InMemoryStore) LoadAgentBlocks(agentID core.AgentID) ([]core.MemoryBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0)
	for _, stored := range s.blocks {
		if stored.agentID == agentID {
			blocks = append(blocks, stored.block.Clone())
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].CreatedAt.Equal(blocks[j].CreatedAt) {
			return blocks[i].Label < blocks[j].Label
		}
		return blocks[i].CreatedAt.Before(blocks[j].CreatedAt)
	})

	return blocks, nil
}

// DeleteBlock removes a block by id.
func (s *InMemoryStore) DeleteBlock(blockID core.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[blockID]; !ok {
		return ErrNotFound
	}

	delete(s.blocks, blockID)

	return nil
}

// SaveMessage inserts or replaces a message by id, preserving insertion
// order for new entries.
func (s *InMemoryStore) SaveMessage(agentID core.AgentID, message core.MessageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.messages[agentID]
	for i, existing := range entries {
		if existing.ID == message.ID {
			entries[i] = message.Clone()
			return nil
		}
	}

	s.messages[agentID] = append(entries, message.Clone())

	return nil
}

// LoadMessages returns the agent's most recent messages in chronological
// order. A non-positive limit returns all messages.
func (s *InMemoryStore) LoadMessages(agentID core.AgentID, limit int) ([]core.MessageEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.messages[agentID]
	start := 0
	if limit > 0 && len(entries) > limit {
		start = len(entries) - limit
	}

	messages := make([]core.MessageEntry, 0, len(entries)-start)
	for _, entry := range entries[start:] {
		messages = append(messages, entry.Clone())
	}

	return messages, nil
}

// SearchMessages returns the agent's messages whose content contains the
// query, matched case-insensitively, in chronological order.
func (s *InMemoryStore) SearchMessages(agentID core.AgentID, query string) ([]core.MessageEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)

	messages := make([]core.MessageEntry, 0)
	for _, entry := range s.messages[agentID] {
		if strings.Contains(strings.ToLower(entry.Content), needle) {
			messages = append(messages, entry.Clone())
		}
	}

	return messages, nil
}

// DeleteAgentData removes all blocks and messages owned by the agent.
func (s *InMemoryStore) DeleteAgentData(agentID core.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stored := range s.blocks {
		if stored.agentID == agentID {
			delete(s.blocks, id)
		}
	}

	delete(s.messages, agentID)

	return nil
}
