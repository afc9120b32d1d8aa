// Package config loads router deployment configuration from a YAML file with
// environment overrides. A .env file next to the process is honored so local
// setups can keep API keys out of the config file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrouter/logging"
)

// ReasoningConfig selects the language model backing the thought stages.
type ReasoningConfig struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// StructuredModel optionally runs the extraction stage on a different
	// model. Empty means the main model.
	StructuredModel string  `yaml:"structured_model"`
	Temperature     float64 `yaml:"temperature"`
}

// RouterConfig tunes the routing loop itself.
type RouterConfig struct {
	MaxIterations        int    `yaml:"max_iterations"`
	ExtendedSystemPrompt string `yaml:"extended_system_prompt"`
}

// ToolServerConfig points at the local MCP tool server.
type ToolServerConfig struct {
	URL string `yaml:"url"`
}

// AgentConfig declares one remote agent endpoint.
type AgentConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config is the root configuration document.
type Config struct {
	Reasoning  ReasoningConfig  `yaml:"reasoning"`
	Router     RouterConfig     `yaml:"router"`
	ToolServer ToolServerConfig `yaml:"tool_server"`
	Agents     []AgentConfig    `yaml:"agents"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Default returns the baseline configuration used when fields are omitted.
func Default() Config {
	return Config{
		Reasoning: ReasoningConfig{Provider: "openai", Temperature: 0.7},
		Router:    RouterConfig{MaxIterations: 10},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. A missing .env file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays selected environment variables over file values so
// deployments can reconfigure without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("AGENTROUTER_PROVIDER"); v != "" {
		c.Reasoning.Provider = v
	}
	if v := os.Getenv("AGENTROUTER_MODEL"); v != "" {
		c.Reasoning.Model = v
	}
	if v := os.Getenv("AGENTROUTER_TOOL_SERVER_URL"); v != "" {
		c.ToolServer.URL = v
	}
	if v := os.Getenv("AGENTROUTER_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Router.MaxIterations = n
		}
	}
	if v := os.Getenv("AGENTROUTER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Reasoning.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown reasoning provider %q", c.Reasoning.Provider)
	}
	if c.Router.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.Router.MaxIterations)
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, agent := range c.Agents {
		if agent.Name == "" || agent.URL == "" {
			return fmt.Errorf("agent entries need both name and url")
		}
		if _, dup := seen[agent.Name]; dup {
			return fmt.Errorf("duplicate agent name %q", agent.Name)
		}
		seen[agent.Name] = struct{}{}
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// LogLevel maps the configured level string onto the logging package enum.
func (c Config) LogLevel() logging.LogLevel {
	switch c.Logging.Level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
