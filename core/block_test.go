package core

import (
	"errors"
	"strings"
	"testing"
)

func TestNewMemoryBlock_Defaults(t *testing.T) {
	block := NewMemoryBlock("persona", "You are a helpful assistant.")

	if block.ID == "" {
		t.Error("expected a generated block id")
	}
	if !block.InContext {
		t.Error("new blocks should start in-context")
	}
	if block.MaxSize != nil {
		t.Error("new blocks should be unbounded by default")
	}
	if block.CreatedAt.IsZero() || block.UpdatedAt.IsZero() {
		t.Error("timestamps should be initialized")
	}
	if block.Size() != len("You are a helpful assistant.") {
		t.Errorf("unexpected size %d", block.Size())
	}
}

func TestMemoryBlock_UpdateValueMaxSize(t *testing.T) {
	block := NewMemoryBlock("notes", "short")
	maxSize := 10
	block.MaxSize = &maxSize

	if err := block.UpdateValue("tiny"); err != nil {
		t.Fatalf("update within bound failed: %v", err)
	}
	if block.Value != "tiny" {
		t.Errorf("expected value to update, got %q", block.Value)
	}

	err := block.UpdateValue(strings.Repeat("x", 11))
	if !errors.Is(err, ErrBlockSizeExceeded) {
		t.Fatalf("expected ErrBlockSizeExceeded, got %v", err)
	}
	if block.Value != "tiny" {
		t.Errorf("failed update should leave the value unchanged, got %q", block.Value)
	}
}

func TestMemoryBlock_Append(t *testing.T) {
	block := NewMemoryBlock("notes", "first")

	if err := block.Append("second"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if block.Value != "first\nsecond" {
		t.Errorf("expected newline-joined value, got %q", block.Value)
	}

	maxSize := len(block.Value)
	block.MaxSize = &maxSize
	if err := block.Append("overflow"); !errors.Is(err, ErrBlockSizeExceeded) {
		t.Fatalf("expected ErrBlockSizeExceeded, got %v", err)
	}
	if block.Value != "first\nsecond" {
		t.Errorf("failed append should leave the value unchanged, got %q", block.Value)
	}
}

func TestMemoryBlock_SetInContext(t *testing.T) {
	block := NewMemoryBlock("notes", "value")
	before := block.UpdatedAt

	block.SetInContext(false)

	if block.InContext {
		t.Error("expected block to leave context")
	}
	if block.UpdatedAt.Before(before) {
		t.Error("UpdatedAt should not move backwards")
	}
}

func TestMemoryBlock_CloneIsolation(t *testing.T) {
	block := NewMemoryBlock("notes", "value")
	maxSize := 100
	block.MaxSize = &maxSize
	block.Metadata["origin"] = "test"

	clone := block.Clone()
	clone.Metadata["origin"] = "changed"
	*clone.MaxSize = 1

	if block.Metadata["origin"] != "test" {
		t.Error("clone metadata mutation leaked into original")
	}
	if *block.MaxSize != 100 {
		t.Error("clone MaxSize mutation leaked into original")
	}
}
