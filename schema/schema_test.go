package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapNativeType(t *testing.T) {
	tests := []struct {
		native string
		want   Type
	}{
		{"varchar(255)", TypeString},
		{"VARCHAR(64)", TypeString},
		{"character varying", TypeString},
		{"int", TypeInteger},
		{"int unsigned", TypeInteger},
		{"bigint", TypeInteger},
		{"decimal(10,2)", TypeFloat},
		{"double precision", TypeFloat},
		{"bool", TypeBoolean},
		{"datetime", TypeDatetime},
		{"timestamp with time zone", TypeDatetime},
		{"jsonb", TypeJSON},
		// search-index mapping types
		{"text", TypeString},
		{"keyword", TypeString},
		{"long", TypeInteger},
		{"half_float", TypeFloat},
		{"date", TypeDatetime},
		{"nested", TypeJSON},
		{"object", TypeJSON},
	}
	for _, tt := range tests {
		got, err := MapNativeType("hotels", "f", tt.native)
		require.NoError(t, err, tt.native)
		assert.Equal(t, tt.want, got, tt.native)
	}
}

func TestMapNativeType_Unsupported(t *testing.T) {
	_, err := MapNativeType("hotels", "location", "geo_point")

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "hotels", unsupported.Entity)
	assert.Equal(t, "location", unsupported.Field)
	assert.Contains(t, err.Error(), "geo_point")
}

func TestDescriptor_Validate(t *testing.T) {
	valid := Descriptor{
		Entity: "hotels",
		Fields: []FieldDescriptor{
			{Name: "id", Type: TypeInteger, Key: true},
			{Name: "name", Type: TypeString},
		},
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Descriptor{Fields: valid.Fields}.Validate())

	dup := valid
	dup.Fields = []FieldDescriptor{
		{Name: "id", Type: TypeInteger, Key: true},
		{Name: "id", Type: TypeString},
	}
	assert.Error(t, dup.Validate())

	noKey := Descriptor{Entity: "logs", Fields: []FieldDescriptor{{Name: "msg", Type: TypeString}}}
	assert.Error(t, noKey.Validate())
	noKey.Keyless = true
	assert.NoError(t, noKey.Validate())
}

type fakeSource struct {
	descs []Descriptor
	err   error
}

func (f *fakeSource) DescribeSchema(context.Context) ([]Descriptor, error) {
	return f.descs, f.err
}

func TestIntrospector_Describe(t *testing.T) {
	src := &fakeSource{descs: []Descriptor{
		{Entity: "hotels", Fields: []FieldDescriptor{{Name: "id", Type: TypeInteger, Key: true}}},
		{Entity: "bookings", Fields: []FieldDescriptor{{Name: "id", Type: TypeInteger, Key: true}}},
	}}
	in := NewIntrospector(src)

	all, err := in.Describe(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matched, err := in.Describe(context.Background(), "hotel")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "hotels", matched[0].Entity)
}

func TestIntrospector_NoMatch(t *testing.T) {
	src := &fakeSource{descs: []Descriptor{
		{Entity: "hotels", Fields: []FieldDescriptor{{Name: "id", Type: TypeInteger, Key: true}}},
	}}
	_, err := NewIntrospector(src).Describe(context.Background(), "flights")
	assert.ErrorIs(t, err, ErrSchemaEmpty)
}

func TestIntrospector_SourceUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	_, err := NewIntrospector(src).Describe(context.Background(), "")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestIntrospector_InvalidDescriptorFails(t *testing.T) {
	src := &fakeSource{descs: []Descriptor{
		{Entity: "broken", Fields: []FieldDescriptor{{Name: "x", Type: TypeString}}},
	}}
	_, err := NewIntrospector(src).Describe(context.Background(), "")
	assert.Error(t, err)
}
