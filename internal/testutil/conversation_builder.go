package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/querymesh/core"
)

// ConversationBuilder constructs ordered turn histories with fluent
// chaining for tests. Example:
//
//	turns := NewConversationBuilder().System("be brief").User("hi").Assistant("hello").Build()
//
// Turn IDs and timestamps are deterministic so fixtures compare cleanly.
type ConversationBuilder struct {
	turns []core.Turn
	clock time.Time
}

// NewConversationBuilder creates an empty builder with a fixed base time.
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// System appends a system turn (chainable).
func (b *ConversationBuilder) System(content string) *ConversationBuilder {
	return b.add(core.RoleSystem, content)
}

// User appends a user turn (chainable).
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	return b.add(core.RoleUser, content)
}

// Assistant appends an assistant turn, optionally carrying tool calls
// (chainable).
func (b *ConversationBuilder) Assistant(content string, calls ...core.ToolCall) *ConversationBuilder {
	b.add(core.RoleAssistant, content)
	b.turns[len(b.turns)-1].ToolCalls = calls
	return b
}

// ToolResult appends a tool turn answering the given call (chainable).
func (b *ConversationBuilder) ToolResult(call core.ToolCall, content string) *ConversationBuilder {
	b.add(core.RoleTool, content)
	b.turns[len(b.turns)-1].ToolCalls = []core.ToolCall{call}
	return b
}

// Build returns the accumulated turns.
func (b *ConversationBuilder) Build() []core.Turn {
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

func (b *ConversationBuilder) add(role core.Role, content string) *ConversationBuilder {
	b.clock = b.clock.Add(time.Second)
	b.turns = append(b.turns, core.Turn{
		ID:        fmt.Sprintf("turn-%d", len(b.turns)+1),
		Role:      role,
		Content:   content,
		Timestamp: b.clock,
	})
	return b
}

// Call builds a tool call with a deterministic request ID.
func Call(id, name string, args map[string]any) core.ToolCall {
	return core.ToolCall{RequestID: id, Name: name, Arguments: args}
}
