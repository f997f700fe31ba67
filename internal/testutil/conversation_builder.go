package testutil

import (
	"github.com/hupe1980/agentcore/core"
)

// ConversationBuilder helps construct conversation histories with fluent
// chaining for tests. Example:
//
//	msgs := NewConversationBuilder().User("hi").Assistant("hello").Build()
type ConversationBuilder struct {
	entries []core.MessageEntry
}

// NewConversationBuilder creates a builder for an empty conversation.
// Use chainable methods (User, Assistant, System, Entry) then call Build.
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{}
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	return b.Message("user", content)
}

// Assistant appends an assistant message (chainable).
func (b *ConversationBuilder) Assistant(content string) *ConversationBuilder {
	return b.Message("assistant", content)
}

// System appends a system message (chainable).
func (b *ConversationBuilder) System(content string) *ConversationBuilder {
	return b.Message("system", content)
}

// Message appends a message with an arbitrary role (chainable).
func (b *ConversationBuilder) Message(role, content string) *ConversationBuilder {
	b.entries = append(b.entries, core.NewMessageEntry(role, content))
	return b
}

// Entry appends a pre-built message entry (chainable).
func (b *ConversationBuilder) Entry(entry core.MessageEntry) *ConversationBuilder {
	b.entries = append(b.entries, entry)
	return b
}

// Build returns the conversation as a message slice in insertion order.
func (b *ConversationBuilder) Build() []core.MessageEntry {
	return append([]core.MessageEntry{}, b.entries...)
}
