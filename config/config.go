// Package config loads the unified YAML configuration. Values may reference
// environment variables as ${NAME} or ${NAME:-default}; a .env file next to
// the process is honored when present.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/querymesh/agent"
)

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Agents   []agent.Config `yaml:"agents"`
	Memory   MemoryConfig   `yaml:"memory"`
	Source   SourceConfig   `yaml:"source"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Codegen  CodegenConfig  `yaml:"codegen"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig selects and configures the reasoning provider.
type LLMConfig struct {
	// Provider is one of openai, anthropic or stub.
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// MemoryConfig selects the conversation store backend.
type MemoryConfig struct {
	// Backend is in_memory or sql.
	Backend  string `yaml:"backend"`
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxTurns int    `yaml:"max_turns"`
}

// SourceConfig configures the queryable data source.
type SourceConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	SourceID     string `yaml:"source_id"`
	EntityFilter string `yaml:"entity_filter"`
	LookupTools  bool   `yaml:"lookup_tools"`
}

// DispatchConfig bounds tool execution.
type DispatchConfig struct {
	Timeout     Duration `yaml:"timeout"`
	MaxParallel int64    `yaml:"max_parallel"`
}

// CodegenConfig configures artifact generation.
type CodegenConfig struct {
	OutDir     string   `yaml:"out_dir"`
	Kinds      []string `yaml:"kinds"`
	ModulePath string   `yaml:"module_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration parses human-readable durations ("15s", "2m") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads, expands and validates a configuration file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit config errors are not.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := expandEnv(string(raw))
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when a field is absent.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		LLM:    LLMConfig{Provider: "openai"},
		Memory: MemoryConfig{Backend: "in_memory", MaxTurns: 50},
		Source: SourceConfig{Driver: "sqlite3"},
		Dispatch: DispatchConfig{
			Timeout:     Duration(15 * time.Second),
			MaxParallel: 4,
		},
		Codegen: CodegenConfig{OutDir: "gen"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "stub":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Memory.Backend {
	case "in_memory":
	case "sql":
		if c.Memory.Driver == "" || c.Memory.DSN == "" {
			return fmt.Errorf("config: sql memory backend requires driver and dsn")
		}
	default:
		return fmt.Errorf("config: unknown memory backend %q", c.Memory.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("config: agent %q declared twice", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// expandEnv substitutes ${NAME} and ${NAME:-default} references. Unset
// variables without a default expand to the empty string.
func expandEnv(s string) string {
	return os.Expand(s, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}
