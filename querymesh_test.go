package querymesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/agent"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/schema"
	"github.com/hupe1980/querymesh/tool"
)

func TestQueryMesh_ToolRoundTrip(t *testing.T) {
	mesh := New()
	t.Cleanup(func() { _ = mesh.Shutdown(context.Background()) })

	desc := tool.Descriptor{
		Name:        "echo",
		Description: "Echoes its input back.",
		Parameters: []tool.ParameterSpec{
			{Name: "text", Type: schema.TypeString, Required: true},
		},
	}
	handler := tool.HandlerFunc(func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})
	require.NoError(t, mesh.RegisterTool(desc, handler))

	res := mesh.ExecuteTool(context.Background(), core.ToolCall{
		Name:      "echo",
		Arguments: map[string]any{"text": "ping"},
	})
	require.NoError(t, res.Err)
	assert.Equal(t, "ping", res.Value)
	assert.Equal(t, "echo", res.Tool)
}

func TestQueryMesh_ExecuteToolUnknown(t *testing.T) {
	mesh := New()
	res := mesh.ExecuteTool(context.Background(), core.ToolCall{Name: "ghost"})
	assert.ErrorIs(t, res.Err, tool.ErrToolNotFound)
}

func TestQueryMesh_DispatchTurn(t *testing.T) {
	mesh := New()
	stub := model.NewStubModel().Respond(model.Completion{
		Text:  "answered",
		Usage: &core.TokenUsage{PromptTokens: 4, CompletionTokens: 2},
	})
	require.NoError(t, mesh.RegisterAgent(agent.Config{Name: "assistant"}, stub))

	result, err := mesh.DispatchTurn(context.Background(), "conv-1", "assistant", "question")
	require.NoError(t, err)
	assert.Equal(t, "answered", result.Response)
	assert.Equal(t, "assistant", result.AgentName)
	assert.Equal(t, 1, result.Rounds)
}

func TestQueryMesh_NoDataSource(t *testing.T) {
	mesh := New()
	assert.Nil(t, mesh.Service())

	_, err := mesh.RegisterEntityTools(context.Background())
	assert.Error(t, err)

	_, err = mesh.GenerateArtifacts(context.Background(), t.TempDir())
	assert.Error(t, err)
}
