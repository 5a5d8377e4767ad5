// Package codegen renders Go source artifacts and tool descriptors from
// normalized schema descriptors. Rendering is deterministic: the same
// descriptor always produces byte-identical output.
package codegen

import (
	"fmt"

	"github.com/hupe1980/querymesh/schema"
)

// Kind selects which artifact template to render.
type Kind string

// Artifact kinds.
const (
	KindModel      Kind = "model"
	KindController Kind = "controller"
	KindTool       Kind = "tool"
)

// Header is the marker line identifying generated files. The writer refuses
// to overwrite files that lack it.
const Header = "// Code generated by querymesh. DO NOT EDIT."

// Artifact is one rendered source file, with its path relative to the
// generation root.
type Artifact struct {
	Path   string
	Source []byte
}

// TemplateError reports a descriptor that cannot be rendered.
type TemplateError struct {
	Entity string
	Kind   Kind
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("codegen: rendering %s for %s: %s", e.Kind, e.Entity, e.Reason)
}

// goType maps a semantic field type to the Go type used in generated models.
// Nullable fields render as pointers except JSON, which is already a
// reference type.
func goType(f schema.FieldDescriptor) string {
	var t string
	switch f.Type {
	case schema.TypeString:
		t = "string"
	case schema.TypeInteger:
		t = "int64"
	case schema.TypeFloat:
		t = "float64"
	case schema.TypeBoolean:
		t = "bool"
	case schema.TypeDatetime:
		t = "time.Time"
	case schema.TypeJSON:
		return "json.RawMessage"
	default:
		t = "any"
	}
	if f.Nullable {
		return "*" + t
	}
	return t
}
