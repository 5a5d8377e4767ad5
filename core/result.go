package core

// TokenUsage captures token accounting reported by a reasoning capability.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage from another round into u.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// TurnResult is the outcome of one dispatched conversation turn: the final
// assistant response plus every tool call executed on the way there.
type TurnResult struct {
	ConversationID string      `json:"conversation_id"`
	AgentName      string      `json:"agent_name"`
	Response       string      `json:"response"`
	ToolCalls      []ToolCall  `json:"tool_calls,omitempty"`
	Rounds         int         `json:"rounds"`
	Usage          *TokenUsage `json:"usage,omitempty"`
}
