package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/memory"
	"github.com/hupe1980/agentcore/model"
)

func newSnapshotFixture() (*agent.ModelAgent, *memory.AgentMemory) {
	mem := memory.New(core.NewAgentID())
	mem.CreateBlock("persona", "You are a research assistant.")
	mem.AddMessage("user", "hello")
	mem.AddMessage("assistant", "hi")

	a := agent.NewModelAgent("Test Agent", model.NewMockModel("mock-1", "mock"), func(o *agent.Options) {
		o.Memory = mem
	})

	return a, mem
}

func TestSnapshot(t *testing.T) {
	a, mem := newSnapshotFixture()

	file := Snapshot(a, mem)

	if file.Version != FileVersion {
		t.Fatalf("expected version %s, got %s", FileVersion, file.Version)
	}
	if file.Metadata.AgentID != a.ID().String() {
		t.Fatalf("expected agent id %s, got %s", a.ID(), file.Metadata.AgentID)
	}
	if file.Metadata.Name != "Test Agent" {
		t.Fatalf("unexpected name %q", file.Metadata.Name)
	}
	if file.Config.Model != "mock-1" || file.Config.Provider != "mock" {
		t.Fatalf("unexpected model config: %+v", file.Config)
	}
	if !strings.Contains(file.Config.Instructions, "You are Test Agent") {
		t.Fatalf("unexpected instructions %q", file.Config.Instructions)
	}
	if file.Memory.MaxContextSize != memory.DefaultMaxContextSize {
		t.Fatalf("unexpected max context size %d", file.Memory.MaxContextSize)
	}
	if len(file.Memory.Blocks) != 1 || file.Memory.Blocks[0].Label != "persona" {
		t.Fatalf("unexpected blocks: %+v", file.Memory.Blocks)
	}
	if len(file.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(file.Messages))
	}
}

func TestSnapshot_NilMemory(t *testing.T) {
	a := agent.NewModelAgent("bare", model.NewMockModel("mock-1", "mock"))

	file := Snapshot(a, nil)

	if len(file.Memory.Blocks) != 0 || len(file.Messages) != 0 {
		t.Fatalf("expected empty memory state, got %+v", file)
	}
}

func TestAgentFile_SaveLoadRoundTrip(t *testing.T) {
	a, mem := newSnapshotFixture()
	path := filepath.Join(t.TempDir(), "agent.af")

	if err := Snapshot(a, mem).Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Metadata.Name != "Test Agent" {
		t.Fatalf("unexpected name %q", loaded.Metadata.Name)
	}
	if len(loaded.Memory.Blocks) != 1 || loaded.Memory.Blocks[0].Value != "You are a research assistant." {
		t.Fatalf("unexpected blocks: %+v", loaded.Memory.Blocks)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", loaded.Messages)
	}
}

func TestAgentFile_LoadVersionMismatch(t *testing.T) {
	a, mem := newSnapshotFixture()
	path := filepath.Join(t.TempDir(), "agent.af")

	file := Snapshot(a, mem)
	file.Version = "0.9.0"
	if err := file.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("expected ErrIncompatibleVersion, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected 1.0.0, got 0.9.0") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestAgentFile_LoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.af")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAgentFile_BytesRoundTrip(t *testing.T) {
	a, mem := newSnapshotFixture()

	file := Snapshot(a, mem)
	file.Version = "2.0.0"

	data, err := file.Bytes()
	if err != nil {
		t.Fatalf("bytes failed: %v", err)
	}

	// FromBytes performs no version check.
	parsed, err := FromBytes(data)
	if err != nil {
		t.Fatalf("from bytes failed: %v", err)
	}
	if parsed.Version != "2.0.0" || parsed.Metadata.Name != "Test Agent" {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}

func TestAgentFile_AgentID(t *testing.T) {
	a, mem := newSnapshotFixture()

	file := Snapshot(a, mem)

	id, err := file.AgentID()
	if err != nil {
		t.Fatalf("agent id failed: %v", err)
	}
	if id != a.ID() {
		t.Fatalf("expected %s, got %s", a.ID(), id)
	}

	file.Metadata.AgentID = "not-a-uuid"
	if _, err := file.AgentID(); err == nil {
		t.Fatal("expected error for malformed agent id")
	}
}

func TestManager_CheckpointLifecycle(t *testing.T) {
	a, mem := newSnapshotFixture()
	mgr := NewManager(t.TempDir())

	filename, err := mgr.Checkpoint(a, mem)
	if err != nil {
		t.Fatalf("checkpoint failed: %v", err)
	}
	if !strings.HasPrefix(filename, "test_agent_") || !strings.HasSuffix(filename, ".af") {
		t.Fatalf("unexpected filename %q", filename)
	}

	names, err := mgr.List("Test Agent")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 1 || names[0] != filename {
		t.Fatalf("unexpected list: %v", names)
	}

	if names, _ := mgr.List("Other Agent"); len(names) != 0 {
		t.Fatalf("expected no checkpoints for other agent, got %v", names)
	}

	loaded, err := mgr.Load(filename)
	if err != nil {
		t.Fatalf("manager load failed: %v", err)
	}
	if loaded.Metadata.Name != "Test Agent" {
		t.Fatalf("unexpected name %q", loaded.Metadata.Name)
	}

	if err := mgr.Delete(filename); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if names, _ := mgr.List("Test Agent"); len(names) != 0 {
		t.Fatalf("expected empty list after delete, got %v", names)
	}

	if err := mgr.Delete(filename); err == nil {
		t.Fatal("expected error deleting missing checkpoint")
	}
}

func TestManager_ListMissingDir(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "never_created"))

	names, err := mgr.List("Test Agent")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}
}

func TestManager_ListSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	for _, name := range []string{
		"test_agent_20260101_000000.af",
		"test_agent_20250101_000000.af",
		"other_20260101_000000.af",
		"test_agent_notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	names, err := mgr.List("Test Agent")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	want := []string{"test_agent_20250101_000000.af", "test_agent_20260101_000000.af"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, names)
	}
}
