// Package model abstracts the reasoning capability consumed by the agent
// router: conversation history and tool descriptors in, either a final text
// response or a plan of requested tool calls out. Provider adapters live in
// subpackages; the package itself stays SDK-free.
package model

import (
	"context"
	"errors"

	"github.com/hupe1980/querymesh/core"
)

// ErrReasoningUnavailable wraps any provider failure so the router can treat
// every backend uniformly.
var ErrReasoningUnavailable = errors.New("reasoning capability unavailable")

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a minimal JSON-Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized model input assembled by the router for one
// reasoning round.
type Request struct {
	ModelID      string           `json:"model_id"`
	Temperature  float64          `json:"temperature"`
	SystemPrompt string           `json:"system_prompt"`
	History      []core.Turn      `json:"history"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Completion is the model's answer for one round: final text, or one or more
// requested tool calls (in request order), never both empty.
type Completion struct {
	Text      string           `json:"text,omitempty"`
	ToolCalls []core.ToolCall  `json:"tool_calls,omitempty"`
	Usage     *core.TokenUsage `json:"usage,omitempty"`
}

// Info describes a model implementation.
type Info struct {
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the opaque reasoning capability. Implementations must be safe for
// concurrent use and must surface provider failures as errors wrapping
// ErrReasoningUnavailable.
type Model interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Info() Info
}
