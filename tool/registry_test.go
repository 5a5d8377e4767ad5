package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/schema"
)

func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, args map[string]any) (any, error) {
		return args, nil
	})
}

func hotelDescriptor() Descriptor {
	return Descriptor{
		Name:        "query_hotels",
		Description: "Query hotels with optional filters.",
		Parameters: []ParameterSpec{
			{Name: "city", Type: schema.TypeString, Required: true},
			{Name: "rating", Type: schema.TypeFloat},
			{Name: "limit", Type: schema.TypeInteger, Default: int64(100)},
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	prior, err := r.Register(hotelDescriptor(), echoHandler())
	require.NoError(t, err)
	assert.Nil(t, prior)

	// Replacing returns the prior descriptor.
	replacement := hotelDescriptor()
	replacement.Description = "updated"
	prior, err = r.Register(replacement, HandlerFunc(
		func(context.Context, map[string]any) (any, error) { return "replacement answered", nil },
	))
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "Query hotels with optional filters.", prior.Description)

	// Resolving after replacement yields the new descriptor and handler.
	resolved, err := r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{"city": "Berlin"}})
	require.NoError(t, err)
	assert.Equal(t, "updated", resolved.Descriptor.Description)

	out, err := resolved.Handler.Call(context.Background(), resolved.Invocation.Arguments)
	require.NoError(t, err)
	assert.Equal(t, "replacement answered", out)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(Descriptor{}, echoHandler())
	assert.Error(t, err)

	_, err = r.Register(hotelDescriptor(), nil)
	assert.Error(t, err)

	dup := hotelDescriptor()
	dup.Parameters = append(dup.Parameters, ParameterSpec{Name: "city", Type: schema.TypeString})
	_, err = r.Register(dup, echoHandler())
	assert.Error(t, err)
}

func TestRegistry_ResolveUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(core.ToolCall{Name: "nope"})
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_ResolveMissingRequired(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(hotelDescriptor(), echoHandler())
	require.NoError(t, err)

	_, err = r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{}})
	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "city", missing.Parameter)
}

func TestRegistry_ResolveUnknownParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(hotelDescriptor(), echoHandler())
	require.NoError(t, err)

	_, err = r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{
		"city":    "Berlin",
		"country": "DE",
	}})
	var unknown *UnknownParameterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "country", unknown.Parameter)
}

func TestRegistry_ResolveAppliesDefaults(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(hotelDescriptor(), echoHandler())
	require.NoError(t, err)

	resolved, err := r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{"city": "Berlin"}})
	require.NoError(t, err)
	assert.Equal(t, int64(100), resolved.Invocation.Arguments["limit"])
	assert.NotEmpty(t, resolved.Invocation.RequestID)
	// Optional parameters without defaults stay absent.
	assert.NotContains(t, resolved.Invocation.Arguments, "rating")
}

func TestRegistry_ResolveCoercion(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(hotelDescriptor(), echoHandler())
	require.NoError(t, err)

	// JSON decodes numbers to float64; integral floats coerce to int64.
	resolved, err := r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{
		"city":  "Berlin",
		"limit": float64(25),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(25), resolved.Invocation.Arguments["limit"])

	_, err = r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{
		"city":  "Berlin",
		"limit": 2.5,
	}})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "limit", mismatch.Parameter)

	_, err = r.Resolve(core.ToolCall{Name: "query_hotels", Arguments: map[string]any{"city": 42}})
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "city", mismatch.Parameter)
}

func TestRegistry_ResolveDatetime(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(Descriptor{
		Name:       "by_date",
		Parameters: []ParameterSpec{{Name: "since", Type: schema.TypeDatetime, Required: true}},
	}, echoHandler())
	require.NoError(t, err)

	for _, ok := range []string{"2025-06-01", "2025-06-01 10:30:00", "2025-06-01T10:30:00Z"} {
		_, err := r.Resolve(core.ToolCall{Name: "by_date", Arguments: map[string]any{"since": ok}})
		assert.NoError(t, err, ok)
	}

	_, err = r.Resolve(core.ToolCall{Name: "by_date", Arguments: map[string]any{"since": "June 1st"}})
	assert.Error(t, err)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.Register(Descriptor{Name: name}, echoHandler())
		require.NoError(t, err)
	}

	all := r.List(nil)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[2].Name)

	subset := r.List([]string{"mid", "missing"})
	require.Len(t, subset, 1)
	assert.Equal(t, "mid", subset[0].Name)
}

func TestDescriptor_Schema(t *testing.T) {
	s := hotelDescriptor().Schema()
	assert.Equal(t, "object", s["type"])

	props := s["properties"].(map[string]any)
	assert.Equal(t, "string", props["city"].(map[string]any)["type"])
	assert.Equal(t, "number", props["rating"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
	assert.Equal(t, []string{"city"}, s["required"])
}
