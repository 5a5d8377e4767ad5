package testutil

import "github.com/hupe1980/querymesh/schema"

// DescriptorBuilder constructs entity descriptors with fluent chaining for
// tests. Example:
//
//	desc := NewDescriptorBuilder("hotels").Key("id", schema.TypeInteger).Field("name", schema.TypeString).Build()
type DescriptorBuilder struct {
	desc schema.Descriptor
}

// NewDescriptorBuilder creates a builder for the named entity.
func NewDescriptorBuilder(entity string) *DescriptorBuilder {
	return &DescriptorBuilder{desc: schema.Descriptor{SourceID: "test", Entity: entity}}
}

// Key appends a key field (chainable).
func (b *DescriptorBuilder) Key(name string, typ schema.Type) *DescriptorBuilder {
	b.desc.Fields = append(b.desc.Fields, schema.FieldDescriptor{Name: name, Type: typ, Key: true})
	return b
}

// Field appends a plain field (chainable).
func (b *DescriptorBuilder) Field(name string, typ schema.Type) *DescriptorBuilder {
	b.desc.Fields = append(b.desc.Fields, schema.FieldDescriptor{Name: name, Type: typ})
	return b
}

// Nullable appends a nullable field (chainable).
func (b *DescriptorBuilder) Nullable(name string, typ schema.Type) *DescriptorBuilder {
	b.desc.Fields = append(b.desc.Fields, schema.FieldDescriptor{Name: name, Type: typ, Nullable: true})
	return b
}

// Keyless marks the entity keyless (chainable).
func (b *DescriptorBuilder) Keyless() *DescriptorBuilder {
	b.desc.Keyless = true
	return b
}

// Build returns the descriptor.
func (b *DescriptorBuilder) Build() schema.Descriptor { return b.desc }
