package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/internal/testutil"
	"github.com/hupe1980/querymesh/schema"
)

func hotelsDescriptor() schema.Descriptor {
	return testutil.NewDescriptorBuilder("hotels").
		Key("id", schema.TypeInteger).
		Field("name", schema.TypeString).
		Nullable("rating", schema.TypeFloat).
		Nullable("opened_at", schema.TypeDatetime).
		Build()
}

func TestEngine_RenderModel(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	artifact, err := e.Render(hotelsDescriptor(), KindModel)
	require.NoError(t, err)
	assert.Equal(t, "model/hotels.go", artifact.Path)

	src := string(artifact.Source)
	assert.Contains(t, src, Header)
	assert.Contains(t, src, "type Hotels struct")
	assert.Regexp(t, `ID\s+int64`, src)
	assert.Regexp(t, `Rating\s+\*float64`, src)
	assert.Regexp(t, `OpenedAt\s+\*time\.Time`, src)
	assert.Contains(t, src, `json:"opened_at"`)
}

func TestEngine_RenderDeterministic(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	for _, kind := range []Kind{KindModel, KindController, KindTool} {
		first, err := e.Render(hotelsDescriptor(), kind)
		require.NoError(t, err)
		second, err := e.Render(hotelsDescriptor(), kind)
		require.NoError(t, err)
		assert.Equal(t, first.Source, second.Source, kind)
	}
}

func TestEngine_RenderController(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	artifact, err := e.Render(hotelsDescriptor(), KindController)
	require.NoError(t, err)
	src := string(artifact.Source)
	assert.Contains(t, src, "type HotelsController struct")
	assert.Contains(t, src, `r.URL.Query().Get("name")`)
	assert.Contains(t, src, `Entity: "hotels"`)
}

func TestEngine_RenderTool(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	artifact, err := e.Render(hotelsDescriptor(), KindTool)
	require.NoError(t, err)
	src := string(artifact.Source)
	assert.Contains(t, src, "func RegisterHotelsTool")
	assert.Contains(t, src, `"query_hotels"`)
	assert.Contains(t, src, `{Name: "limit"`)
}

func TestEngine_RenderNoFields(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.Render(schema.Descriptor{Entity: "empty", Keyless: true}, KindModel)
	var tmplErr *TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "empty", tmplErr.Entity)
}

func TestEngine_RenderAllIsolatesFailures(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	descs := []schema.Descriptor{
		hotelsDescriptor(),
		{Entity: "broken", Keyless: true},
	}
	artifacts, failures := e.RenderAll(descs, KindModel)
	assert.Len(t, artifacts, 1)
	require.Len(t, failures, 1)
	assert.Contains(t, failures, "broken")
}

func TestSynthesizeToolDescriptor(t *testing.T) {
	desc := testutil.NewDescriptorBuilder("hotels").
		Key("id", schema.TypeInteger).
		Field("name", schema.TypeString).
		Field("meta", schema.TypeJSON).
		Build()

	td, err := SynthesizeToolDescriptor(desc)
	require.NoError(t, err)
	assert.Equal(t, "query_hotels", td.Name)

	names := make([]string, 0, len(td.Parameters))
	for _, p := range td.Parameters {
		names = append(names, p.Name)
		assert.False(t, p.Required)
	}
	// JSON fields are not filterable; limit is always appended.
	assert.Equal(t, []string{"id", "name", "limit"}, names)
	assert.Equal(t, int64(DefaultQueryLimit), td.Parameters[len(td.Parameters)-1].Default)
}

func TestSynthesizeLookupDescriptor(t *testing.T) {
	td, err := SynthesizeLookupDescriptor(hotelsDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "get_hotels", td.Name)
	require.Len(t, td.Parameters, 1)
	assert.Equal(t, "id", td.Parameters[0].Name)
	assert.True(t, td.Parameters[0].Required)

	keyless := testutil.NewDescriptorBuilder("logs").Field("msg", schema.TypeString).Keyless().Build()
	_, err = SynthesizeLookupDescriptor(keyless)
	assert.Error(t, err)
}

func TestWriter_OverwritePolicy(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	generated := Artifact{Path: "model/hotels.go", Source: []byte(Header + "\n\npackage model\n")}
	require.NoError(t, w.Write(generated))
	require.NoError(t, w.Write(generated)) // generated files may be overwritten

	// Hand-written files are protected.
	hand := filepath.Join(dir, "model", "custom.go")
	require.NoError(t, os.WriteFile(hand, []byte("package model\n"), 0o644))
	err = w.Write(Artifact{Path: "model/custom.go", Source: []byte(Header + "\n")})
	assert.ErrorContains(t, err, "refusing to overwrite")
}

func TestWriter_RejectsEscape(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	err = w.Write(Artifact{Path: "../outside.go", Source: []byte("x")})
	assert.ErrorContains(t, err, "escapes")
}
