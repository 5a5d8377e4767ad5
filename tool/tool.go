// Package tool implements the tool subsystem: declarative descriptors with
// typed parameter specs, a concurrency-safe registry, and argument validation
// that turns a raw tool call into an invocable, schema-checked unit.
package tool

import (
	"context"
	"sort"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/schema"
)

// Handler is the executable unit behind a registered tool. Implementations
// must be safe for concurrent use and should honor context cancellation,
// since the dispatch executor abandons handlers that outlive their timeout.
type Handler interface {
	Call(ctx context.Context, args map[string]any) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Call invokes the wrapped function.
func (f HandlerFunc) Call(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// ParameterSpec declares one accepted argument of a tool.
type ParameterSpec struct {
	Name        string      `json:"name"`
	Type        schema.Type `json:"type"`
	Required    bool        `json:"required"`
	Default     any         `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Descriptor is the declarative representation of a tool: a globally unique
// name, a description shown to the reasoning capability, and an ordered
// parameter sequence. Descriptors are immutable after registration; the only
// mutation is wholesale replacement under the same name.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// Schema renders the descriptor's parameters as the minimal JSON-Schema form
// reasoning adapters expect. Required names are sorted for stable output.
func (d Descriptor) Schema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	var required []string
	for _, p := range d.Parameters {
		prop := map[string]any{"type": jsonType(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	sort.Strings(required)
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// param returns the declaration for a parameter name, if present.
func (d Descriptor) param(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ValidatedCall is a tool invocation that passed validation: every required
// parameter present and type-compatible, defaults applied, unknown names
// rejected. It carries the resolved handler so the executor never touches
// the registry.
type ValidatedCall struct {
	Invocation core.ToolCall
	Descriptor Descriptor
	Handler    Handler
}

// jsonType maps semantic types onto JSON-Schema primitive names.
func jsonType(t schema.Type) string {
	switch t {
	case schema.TypeInteger:
		return "integer"
	case schema.TypeFloat:
		return "number"
	case schema.TypeBoolean:
		return "boolean"
	case schema.TypeJSON:
		return "object"
	default: // string, datetime
		return "string"
	}
}
