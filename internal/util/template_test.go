package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt("You answer questions about {{.domain}}.", map[string]any{"domain": "hotels"})
	require.NoError(t, err)
	assert.Equal(t, "You answer questions about hotels.", out)
}

func TestRenderPrompt_PassThrough(t *testing.T) {
	out, err := RenderPrompt("plain prompt, no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain prompt, no markers", out)
}

func TestRenderPrompt_Funcs(t *testing.T) {
	out, err := RenderPrompt(`{{.missing | default "fallback"}} {{upper .tone}}`, map[string]any{"tone": "brief"})
	require.NoError(t, err)
	assert.Equal(t, "fallback BRIEF", out)
}

func TestRenderPrompt_BadTemplate(t *testing.T) {
	_, err := RenderPrompt("{{.unclosed", nil)
	assert.Error(t, err)
}
