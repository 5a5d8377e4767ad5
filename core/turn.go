package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles. RoleTool marks turns that carry tool results rather
// than natural language.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is an ephemeral request to invoke a named tool with a set of
// arguments. It is created per call by the reasoning step, resolved by the
// tool registry and discarded after the result is returned; a copy may be
// echoed into a Turn for audit.
type ToolCall struct {
	RequestID string         `json:"request_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Turn is one role-tagged message in a conversation's ordered history.
//
// Assistant turns that requested tools carry the requested calls; tool turns
// echo the single call they answer. Turns should be treated as immutable
// after they are appended to the memory store.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewTurn creates a turn with a fresh ID and UTC timestamp.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn creates a user-authored message turn.
func NewUserTurn(content string) Turn { return NewTurn(RoleUser, content) }

// NewSystemTurn creates a system turn. System turns are never evicted by the
// memory store.
func NewSystemTurn(content string) Turn { return NewTurn(RoleSystem, content) }

// NewAssistantTurn creates an assistant turn, optionally carrying the tool
// calls the reasoning step requested alongside (or instead of) text.
func NewAssistantTurn(content string, calls ...ToolCall) Turn {
	t := NewTurn(RoleAssistant, content)
	t.ToolCalls = calls
	return t
}

// NewToolTurn records the outcome of a single tool call. The originating call
// is echoed so transcripts stay attributable.
func NewToolTurn(call ToolCall, content string) Turn {
	t := NewTurn(RoleTool, content)
	t.ToolCalls = []ToolCall{call}
	return t
}

// IsSystem reports whether the turn is a system turn.
func (t Turn) IsSystem() bool { return t.Role == RoleSystem }

// NewID returns a new unique identifier for turns and tool invocations.
func NewID() string { return uuid.NewString() }
