// Package agent defines agent configurations, the registry binding them to
// reasoning models, and the router that drives bounded multi-round
// conversation turns.
package agent

import (
	"fmt"

	"github.com/hupe1980/querymesh/memory"
)

// DefaultMaxToolRounds bounds the reasoning/tool loop of one turn.
const DefaultMaxToolRounds = 5

// Config declares one agent: its reasoning model, prompt, tool allowlist
// and loop bounds.
type Config struct {
	// Name uniquely identifies the agent.
	Name string `json:"name" yaml:"name"`

	// Model is the provider-specific model identifier passed through to the
	// reasoning adapter.
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature, in [0, 2].
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// SystemPrompt seeds every reasoning round. It may contain template
	// variables expanded against PromptVars.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// PromptVars are substituted into SystemPrompt template markers.
	PromptVars map[string]any `json:"prompt_vars,omitempty" yaml:"prompt_vars,omitempty"`

	// AllowedTools restricts the tools offered to the model. Empty means
	// every registered tool.
	AllowedTools []string `json:"allowed_tools,omitempty" yaml:"allowed_tools,omitempty"`

	// MaxToolRounds caps reasoning rounds per turn. Zero applies the
	// default.
	MaxToolRounds int `json:"max_tool_rounds,omitempty" yaml:"max_tool_rounds,omitempty"`

	// ContextWindow caps the history turns sent to the model. Zero applies
	// the memory default.
	ContextWindow int `json:"context_window,omitempty" yaml:"context_window,omitempty"`
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent: config has no name")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("agent %s: temperature %g outside [0, 2]", c.Name, c.Temperature)
	}
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("agent %s: negative max_tool_rounds", c.Name)
	}
	return nil
}

// maxRounds returns the effective loop bound.
func (c Config) maxRounds() int {
	if c.MaxToolRounds > 0 {
		return c.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

// allowsTool reports whether the agent may invoke the named tool. An empty
// allowlist permits every registered tool.
func (c Config) allowsTool(name string) bool {
	if len(c.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range c.AllowedTools {
		if allowed == name {
			return true
		}
	}
	return false
}

// contextWindow returns the effective history bound.
func (c Config) contextWindow() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return memory.DefaultContextWindow
}
