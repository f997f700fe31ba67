package core

import "time"

// MessageEntry is a single message in an agent's conversation history. The
// history is append-only; entries are never mutated after insertion.
type MessageEntry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`
	// Timestamp records when the entry was appended (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Role is the message origin ("user", "assistant", "system").
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// ToolCalls lists tool invocations attached to the message, if any.
	ToolCalls []string `json:"tool_calls,omitempty"`
	// Metadata holds caller-supplied key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewMessageEntry creates an entry with a fresh id and UTC timestamp.
func NewMessageEntry(role, content string) MessageEntry {
	return MessageEntry{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
		Metadata:  map[string]string{},
	}
}

// Clone returns a deep copy of the entry safe for external mutation.
func (m MessageEntry) Clone() MessageEntry {
	clone := m
	if m.ToolCalls != nil {
		clone.ToolCalls = append([]string(nil), m.ToolCalls...)
	}
	if m.Metadata != nil {
		clone.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
