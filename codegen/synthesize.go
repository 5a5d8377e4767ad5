package codegen

import (
	"fmt"

	"github.com/hupe1980/querymesh/schema"
	"github.com/hupe1980/querymesh/tool"
)

// DefaultQueryLimit is the row bound synthesized query tools advertise.
const DefaultQueryLimit = 100

// SynthesizeToolDescriptor derives a query tool descriptor from an entity
// descriptor. Every non-JSON field becomes an optional filter parameter and
// a bounded limit parameter is always appended. JSON fields are not
// filterable and are skipped.
func SynthesizeToolDescriptor(desc schema.Descriptor) (tool.Descriptor, error) {
	if err := desc.Validate(); err != nil {
		return tool.Descriptor{}, fmt.Errorf("codegen: synthesizing tool for %s: %w", desc.Entity, err)
	}

	td := tool.Descriptor{
		Name:        "query_" + desc.Entity,
		Description: fmt.Sprintf("Query the %s entity with optional per-field filters.", desc.Entity),
	}
	for _, f := range desc.Fields {
		if f.Type == schema.TypeJSON {
			continue
		}
		description := f.Description
		if description == "" {
			description = fmt.Sprintf("Filter on %s.", f.Name)
		}
		td.Parameters = append(td.Parameters, tool.ParameterSpec{
			Name:        f.Name,
			Type:        f.Type,
			Description: description,
		})
	}
	td.Parameters = append(td.Parameters, tool.ParameterSpec{
		Name:        "limit",
		Type:        schema.TypeInteger,
		Default:     int64(DefaultQueryLimit),
		Description: "Maximum rows returned.",
	})
	return td, nil
}

// SynthesizeLookupDescriptor derives a single-record lookup tool descriptor.
// Key fields become required parameters; keyless entities cannot be looked
// up and are rejected.
func SynthesizeLookupDescriptor(desc schema.Descriptor) (tool.Descriptor, error) {
	if err := desc.Validate(); err != nil {
		return tool.Descriptor{}, fmt.Errorf("codegen: synthesizing lookup for %s: %w", desc.Entity, err)
	}
	keys := desc.KeyFields()
	if len(keys) == 0 {
		return tool.Descriptor{}, fmt.Errorf("codegen: entity %s is keyless and cannot be looked up", desc.Entity)
	}

	td := tool.Descriptor{
		Name:        "get_" + desc.Entity,
		Description: fmt.Sprintf("Fetch a single %s record by key.", desc.Entity),
	}
	for _, f := range keys {
		td.Parameters = append(td.Parameters, tool.ParameterSpec{
			Name:        f.Name,
			Type:        f.Type,
			Required:    true,
			Description: fmt.Sprintf("Key field %s.", f.Name),
		})
	}
	return td, nil
}
