package memory

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// SharedMemoryStore is a process-local registry of memory blocks visible to
// several agents at once. Blocks are registered once by an owner and then
// referenced by id; every read returns the registry's current value, so
// updates by one agent become visible to all holders of the reference
// immediately.
//
// Concurrency: protected by RWMutex. All reads return defensive copies.
type SharedMemoryStore struct {
	mu     sync.RWMutex
	blocks map[core.BlockID]*core.MemoryBlock
}

// NewSharedMemoryStore creates an empty shared block registry.
func NewSharedMemoryStore() *SharedMemoryStore {
	return &SharedMemoryStore{
		blocks: make(map[core.BlockID]*core.MemoryBlock),
	}
}

// Register adds a block to the registry and returns its id. Re-registering
// an id replaces the stored block.
func (s *SharedMemoryStore) Register(block core.MemoryBlock) core.BlockID {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := block.Clone()
	s.blocks[stored.ID] = &stored

	return stored.ID
}

// Get returns a copy of the registered block with the given id.
func (s *SharedMemoryStore) Get(id core.BlockID) (core.MemoryBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.blocks[id]
	if !ok {
		return core.MemoryBlock{}, fmt.Errorf("%w: %s", ErrSharedBlockNotFound, id)
	}

	return block.Clone(), nil
}

// Update replaces the value of a registered block. The block's MaxSize bound
// applies; on violation the registered value is left unchanged.
func (s *SharedMemoryStore) Update(id core.BlockID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSharedBlockNotFound, id)
	}

	return block.UpdateValue(value)
}

// Append joins content onto a registered block's value with a newline
// separator, subject to the block's MaxSize bound.
func (s *SharedMemoryStore) Append(id core.BlockID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSharedBlockNotFound, id)
	}

	return block.Append(content)
}

// Remove deletes a registered block. Removing an unknown id is a no-op;
// agents still holding references observe the block as gone.
func (s *SharedMemoryStore) Remove(id core.BlockID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blocks, id)
}

// List returns copies of all registered blocks in unspecified order.
func (s *SharedMemoryStore) List() []core.MemoryBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]core.MemoryBlock, 0, len(s.blocks))
	for _, block := range s.blocks {
		blocks = append(blocks, block.Clone())
	}

	return blocks
}

// Len returns the number of registered blocks.
func (s *SharedMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blocks)
}
