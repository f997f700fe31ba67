package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/internal/testutil"
)

// Interface compliance (compile-time assertions)
var _ core.MemoryStore = (*InMemoryStore)(nil)

func TestInMemoryStore_BlockRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	block := testutil.NewBlockBuilder("persona").Value("assistant").MaxSize(500).OutOfContext().Build()

	if err := store.SaveBlock(agentID, block); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadBlock(block.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Label != "persona" || loaded.Value != "assistant" {
		t.Fatalf("unexpected block: %+v", loaded)
	}
	if loaded.MaxSize == nil || *loaded.MaxSize != 500 {
		t.Fatalf("max size lost: %+v", loaded.MaxSize)
	}
	if loaded.InContext {
		t.Error("context membership lost")
	}

	// upsert by id
	block.Value = "updated"
	if err := store.SaveBlock(agentID, block); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	blocks, _ := store.LoadAgentBlocks(agentID)
	if len(blocks) != 1 || blocks[0].Value != "updated" {
		t.Fatalf("expected 1 updated block, got %+v", blocks)
	}

	if _, err := store.LoadBlock(core.NewBlockID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_LoadAgentBlocksScoped(t *testing.T) {
	store := NewInMemoryStore()
	agentA := core.NewAgentID()
	agentB := core.NewAgentID()

	store.SaveBlock(agentA, core.NewMemoryBlock("one", "1"))
	store.SaveBlock(agentA, core.NewMemoryBlock("two", "2"))
	store.SaveBlock(agentB, core.NewMemoryBlock("other", "x"))

	blocks, err := store.LoadAgentBlocks(agentA)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks for agent A, got %d", len(blocks))
	}
	for _, block := range blocks {
		if block.Label == "other" {
			t.Fatal("agent B's block leaked into agent A's listing")
		}
	}
}

func TestInMemoryStore_DeleteBlock(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	block := core.NewMemoryBlock("temp", "value")
	store.SaveBlock(agentID, block)

	if err := store.DeleteBlock(block.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.DeleteBlock(block.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInMemoryStore_MessagesLimitAndOrder(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	for i := 0; i < 10; i++ {
		msg := core.NewMessageEntry("user", fmt.Sprintf("message %d", i))
		if err := store.SaveMessage(agentID, msg); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := store.LoadMessages(agentID, 0)
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(all) != 10 || all[0].Content != "message 0" || all[9].Content != "message 9" {
		t.Fatalf("unexpected full history: %d entries", len(all))
	}

	limited, _ := store.LoadMessages(agentID, 3)
	if len(limited) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(limited))
	}
	if limited[0].Content != "message 7" || limited[2].Content != "message 9" {
		t.Fatalf("limit should keep the most recent entries in order: %+v", limited)
	}
}

func TestInMemoryStore_SaveMessageUpsert(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	msg := core.NewMessageEntry("user", "original")
	store.SaveMessage(agentID, msg)

	msg.Content = "revised"
	store.SaveMessage(agentID, msg)

	all, _ := store.LoadMessages(agentID, 0)
	if len(all) != 1 || all[0].Content != "revised" {
		t.Fatalf("expected single revised message, got %+v", all)
	}
}

func TestInMemoryStore_SearchMessages(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	conversation := testutil.NewConversationBuilder().
		User("How do I deploy the service?").
		Assistant("Use the deploy script.").
		User("Thanks!").
		Build()
	for _, msg := range conversation {
		store.SaveMessage(agentID, msg)
	}

	results, err := store.SearchMessages(agentID, "DEPLOY")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %d", len(results))
	}
	if results[0].Role != "user" || results[1].Role != "assistant" {
		t.Fatalf("results should be chronological: %+v", results)
	}
}

func TestInMemoryStore_DeleteAgentData(t *testing.T) {
	store := NewInMemoryStore()
	agentA := core.NewAgentID()
	agentB := core.NewAgentID()

	store.SaveBlock(agentA, core.NewMemoryBlock("a", "1"))
	store.SaveMessage(agentA, core.NewMessageEntry("user", "hi"))
	store.SaveBlock(agentB, core.NewMemoryBlock("b", "2"))

	if err := store.DeleteAgentData(agentA); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	blocks, _ := store.LoadAgentBlocks(agentA)
	messages, _ := store.LoadMessages(agentA, 0)
	if len(blocks) != 0 || len(messages) != 0 {
		t.Fatal("agent A data should be gone")
	}

	remaining, _ := store.LoadAgentBlocks(agentB)
	if len(remaining) != 1 {
		t.Fatal("agent B data should survive")
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()
	agentID := core.NewAgentID()

	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.SaveBlock(agentID, core.NewMemoryBlock(fmt.Sprintf("block-%d", i), "v")); err != nil {
				t.Errorf("save block error: %v", err)
			}
			if err := store.SaveMessage(agentID, core.NewMessageEntry("user", "concurrent")); err != nil {
				t.Errorf("save message error: %v", err)
			}
			if _, err := store.LoadAgentBlocks(agentID); err != nil {
				t.Errorf("load error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	blocks, _ := store.LoadAgentBlocks(agentID)
	if len(blocks) != 25 {
		t.Fatalf("expected 25 blocks, got %d", len(blocks))
	}
}
