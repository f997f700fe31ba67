package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/memory"
)

// FileVersion is the agent file format version written by this package.
const FileVersion = "1.0.0"

// AgentFile is the complete serializable snapshot of an agent: identity,
// configuration, memory state and message history.
type AgentFile struct {
	// Version is the file format version.
	Version string `json:"version"`
	// Metadata identifies the snapshotted agent and the export.
	Metadata Metadata `json:"metadata"`
	// Config captures the agent's generation settings.
	Config AgentConfig `json:"config"`
	// Memory captures the block store at snapshot time.
	Memory MemoryState `json:"memory"`
	// Messages is the full message history at snapshot time.
	Messages []core.MessageEntry `json:"messages"`
	// CustomData holds caller-supplied extension data.
	CustomData map[string]any `json:"custom_data,omitempty"`
}

// Metadata identifies the snapshotted agent and records export provenance.
type Metadata struct {
	AgentID      string    `json:"agent_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Description  string    `json:"description,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	ExportedAt   time.Time `json:"exported_at"`
	ExportedFrom string    `json:"exported_from,omitempty"`
}

// AgentConfig captures the generation settings of a model-backed agent.
type AgentConfig struct {
	Instructions string `json:"instructions"`
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
	HistoryLimit int    `json:"history_limit,omitempty"`
}

// MemoryState captures an agent's memory at snapshot time: all blocks
// regardless of context membership, plus named shared-block references
// (references only, the shared blocks themselves live in the registry).
type MemoryState struct {
	MaxContextSize int                     `json:"max_context_size,omitempty"`
	Blocks         []core.MemoryBlock      `json:"blocks"`
	SharedRefs     map[string]core.BlockID `json:"shared_refs,omitempty"`
}

// Snapshot builds an AgentFile from a model agent and its memory. A nil
// memory yields a snapshot with empty memory state and history.
func Snapshot(a *agent.ModelAgent, mem *memory.AgentMemory) *AgentFile {
	now := time.Now().UTC()

	file := &AgentFile{
		Version: FileVersion,
		Metadata: Metadata{
			AgentID:     a.ID().String(),
			Name:        a.Name(),
			CreatedAt:   now,
			UpdatedAt:   now,
			Description: a.Description(),
			ExportedAt:  now,
		},
		Config: AgentConfig{
			Instructions: a.Instructions(),
			MaxTokens:    a.MaxTokens(),
			HistoryLimit: a.HistoryLimit(),
		},
		CustomData: map[string]any{},
	}

	if m := a.Model(); m != nil {
		info := m.Info()
		file.Config.Model = info.Name
		file.Config.Provider = info.Provider
	}

	if mem != nil {
		file.Memory = MemoryState{
			MaxContextSize: mem.MaxContextSize(),
			Blocks:         mem.ListBlocks(),
			SharedRefs:     mem.SharedRefs(),
		}
		file.Messages = mem.Messages()
	}

	return file
}

// Save writes the agent file to path as indented JSON.
func (f *AgentFile) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal agent file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write agent file: %w", err)
	}

	return nil
}

// Load reads an agent file from path and verifies its format version.
func Load(path string) (*AgentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent file: %w", err)
	}

	file, err := FromBytes(data)
	if err != nil {
		return nil, err
	}

	if file.Version != FileVersion {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIncompatibleVersion, FileVersion, file.Version)
	}

	return file, nil
}

// Bytes serializes the agent file for network transfer.
func (f *AgentFile) Bytes() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal agent file: %w", err)
	}

	return data, nil
}

// FromBytes deserializes an agent file. Unlike Load it performs no version
// check, so callers can inspect files written by other format versions.
func FromBytes(data []byte) (*AgentFile, error) {
	var file AgentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agent file: %w", err)
	}

	return &file, nil
}

// AgentID returns the snapshotted agent's typed id.
func (f *AgentFile) AgentID() (core.AgentID, error) {
	id, err := uuid.Parse(f.Metadata.AgentID)
	if err != nil {
		return "", fmt.Errorf("invalid agent id: %w", err)
	}

	return core.AgentID(id.String()), nil
}
