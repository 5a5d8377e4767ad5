// Package schema normalizes the shape of heterogeneous data sources
// (relational tables, search-index mappings) into a fixed descriptor form
// that drives code generation and tool synthesis.
package schema

import "fmt"

// Type is the fixed semantic type enumeration every native source type must
// normalize into. Unmapped native types are a hard error, never a silent
// coercion.
type Type string

// Semantic field types.
const (
	TypeString   Type = "string"
	TypeInteger  Type = "integer"
	TypeFloat    Type = "float"
	TypeBoolean  Type = "boolean"
	TypeDatetime Type = "datetime"
	TypeJSON     Type = "json"
)

// FieldDescriptor describes one column or mapping property of an entity.
type FieldDescriptor struct {
	Name        string `json:"name"`
	Type        Type   `json:"type"`
	Nullable    bool   `json:"nullable"`
	Key         bool   `json:"key"`
	Description string `json:"description,omitempty"`
}

// Descriptor is the normalized schema of one logical entity (table or index).
//
// Field names are unique within a descriptor and at least one key field is
// identified unless the entity is explicitly marked keyless.
type Descriptor struct {
	SourceID string            `json:"source_id"`
	Entity   string            `json:"entity"`
	Fields   []FieldDescriptor `json:"fields"`
	Keyless  bool              `json:"keyless,omitempty"`
}

// Validate checks the descriptor invariants: non-empty entity name, unique
// field names, and a key field unless marked keyless.
func (d Descriptor) Validate() error {
	if d.Entity == "" {
		return fmt.Errorf("schema: descriptor has no entity name")
	}
	seen := make(map[string]struct{}, len(d.Fields))
	hasKey := false
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: entity %s has an unnamed field", d.Entity)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: entity %s declares field %s twice", d.Entity, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Key {
			hasKey = true
		}
	}
	if !hasKey && !d.Keyless {
		return fmt.Errorf("schema: entity %s has no key field and is not marked keyless", d.Entity)
	}
	return nil
}

// KeyFields returns the fields marked as keys, in declaration order.
func (d Descriptor) KeyFields() []FieldDescriptor {
	var keys []FieldDescriptor
	for _, f := range d.Fields {
		if f.Key {
			keys = append(keys, f)
		}
	}
	return keys
}
