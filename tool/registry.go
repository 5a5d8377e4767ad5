package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/schema"
)

// Registry stores tool descriptors and their handlers. It is read-mostly and
// safe under concurrent registration and resolution; a reader never observes
// a partially registered entry because descriptor and handler are swapped in
// under one write lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	descriptor Descriptor
	handler    Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register inserts or replaces the tool by name and returns the prior
// descriptor if one was overwritten, so callers can audit replacements.
// The descriptor must carry a name, a handler, and uniquely named parameters.
func (r *Registry) Register(d Descriptor, h Handler) (*Descriptor, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("tool: descriptor has no name")
	}
	if h == nil {
		return nil, fmt.Errorf("tool %s: nil handler", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return nil, fmt.Errorf("tool %s: unnamed parameter", d.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("tool %s: parameter %q declared twice", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var prior *Descriptor
	if old, ok := r.entries[d.Name]; ok {
		prev := old.descriptor
		prior = &prev
	}
	r.entries[d.Name] = entry{descriptor: d, handler: h}
	return prior, nil
}

// Resolve looks up the named tool and validates the call's arguments against
// its parameter specs: required parameters must be present and
// type-compatible, defaults fill missing optional parameters, unknown names
// are rejected. On success the returned call carries coerced arguments and
// the resolved handler. A call without a request ID is assigned one.
func (r *Registry) Resolve(call core.ToolCall) (*ValidatedCall, error) {
	r.mu.RLock()
	ent, ok := r.entries[call.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	d := ent.descriptor
	for name := range call.Arguments {
		if _, declared := d.param(name); !declared {
			return nil, &UnknownParameterError{Tool: d.Name, Parameter: name}
		}
	}

	validated := make(map[string]any, len(d.Parameters))
	for _, p := range d.Parameters {
		raw, present := call.Arguments[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, &MissingParameterError{Tool: d.Name, Parameter: p.Name}
			}
			if p.Default != nil {
				validated[p.Name] = p.Default
			}
			continue
		}
		coerced, ok := coerce(raw, p.Type)
		if !ok {
			return nil, &TypeMismatchError{Tool: d.Name, Parameter: p.Name, Expected: string(p.Type), Got: raw}
		}
		validated[p.Name] = coerced
	}

	inv := call
	inv.Arguments = validated
	if inv.RequestID == "" {
		inv.RequestID = core.NewID()
	}
	return &ValidatedCall{Invocation: inv, Descriptor: d, Handler: ent.handler}, nil
}

// List returns registered descriptors sorted by name. A non-nil allowed set
// restricts the result to those names; an empty set means all tools, which
// matches the agent configuration convention.
func (r *Registry) List(allowed []string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filter map[string]struct{}
	if len(allowed) > 0 {
		filter = make(map[string]struct{}, len(allowed))
		for _, name := range allowed {
			filter[name] = struct{}{}
		}
	}

	out := make([]Descriptor, 0, len(r.entries))
	for name, ent := range r.entries {
		if filter != nil {
			if _, ok := filter[name]; !ok {
				continue
			}
		}
		out = append(out, ent.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// coerce checks that a JSON-decoded value is compatible with the semantic
// type and converts it to the canonical Go representation. Numbers arrive as
// float64 from JSON, so integral floats are accepted for integer parameters.
func coerce(v any, t schema.Type) (any, bool) {
	switch t {
	case schema.TypeString, schema.TypeDatetime:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if t == schema.TypeDatetime {
			if !validDatetime(s) {
				return nil, false
			}
		}
		return s, true
	case schema.TypeInteger:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int64:
			return n, true
		case float64:
			if n != math.Trunc(n) {
				return nil, false
			}
			return int64(n), true
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, false
			}
			return i, true
		}
		return nil, false
	case schema.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, false
			}
			return f, true
		}
		return nil, false
	case schema.TypeBoolean:
		b, ok := v.(bool)
		return b, ok
	case schema.TypeJSON:
		switch v.(type) {
		case map[string]any, []any:
			return v, true
		}
		return nil, false
	}
	return nil, false
}

// validDatetime accepts the formats the DAO layer understands.
func validDatetime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
