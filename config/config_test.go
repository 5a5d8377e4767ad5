package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/agent"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "querymesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
llm:
  provider: anthropic
  api_key: ${TEST_API_KEY:-fallback-key}
  model: claude-sonnet-4-20250514
source:
  driver: mysql
  dsn: "user:${TEST_DB_PASSWORD}@tcp(localhost:3306)/app"
  lookup_tools: true
dispatch:
  timeout: 30s
  max_parallel: 8
agents:
  - name: analyst
    temperature: 0.3
    system_prompt: "You analyse data."
    allowed_tools: [query_hotels]
    max_tool_rounds: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "fallback-key", cfg.LLM.APIKey)
	assert.Equal(t, "user:s3cret@tcp(localhost:3306)/app", cfg.Source.DSN)
	assert.True(t, cfg.Source.LookupTools)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.Timeout.Std())
	assert.Equal(t, int64(8), cfg.Dispatch.MaxParallel)

	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "analyst", cfg.Agents[0].Name)
	assert.Equal(t, 8, cfg.Agents[0].MaxToolRounds)

	// Unset sections keep their defaults.
	assert.Equal(t, "in_memory", cfg.Memory.Backend)
	assert.Equal(t, "gen", cfg.Codegen.OutDir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "server:\n  hostt: oops\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.Provider = "llama"
	assert.ErrorContains(t, cfg.Validate(), "unknown llm provider")

	cfg = Default()
	cfg.Memory.Backend = "sql"
	assert.ErrorContains(t, cfg.Validate(), "requires driver and dsn")

	cfg = Default()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "port")

	cfg = Default()
	cfg.Agents = []agent.Config{{Name: "dup"}, {Name: "dup"}}
	assert.ErrorContains(t, cfg.Validate(), "declared twice")
}

func TestDuration_Unmarshal(t *testing.T) {
	path := writeConfig(t, "dispatch:\n  timeout: oops\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid duration")
}
