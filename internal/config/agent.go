package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "ANCHORAGE_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "ANCHORAGE_AGENT_BASE_URL"
	EnvAgentToken        = "ANCHORAGE_AGENT_TOKEN"
	EnvAgentModelName    = "ANCHORAGE_AGENT_MODEL_NAME"
)

// AgentConfig configures the semantic-reasoning agent used as the last
// matching phase before interpolation. Disabled (the default) means the
// matcher skips the semantic phase entirely.
type AgentConfig struct {
	Enabled  bool   `toml:"enabled"`
	Name     string `toml:"name"`
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
	Token    string `toml:"token"`
}

// Agent builds the go-agents configuration from the finalized values.
func (c *AgentConfig) Agent() *gaconfig.AgentConfig {
	cfg := gaconfig.DefaultAgentConfig()
	cfg.Name = c.Name
	cfg.Provider = &gaconfig.ProviderConfig{
		Name:    c.Provider,
		BaseURL: c.BaseURL,
		Options: map[string]any{},
	}
	cfg.Model = &gaconfig.ModelConfig{Name: c.Model}

	if c.Token != "" {
		cfg.Provider.Options["token"] = c.Token
	}

	return &cfg
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
}

func (c *AgentConfig) loadDefaults() {
	if c.Name == "" {
		c.Name = "anchorage-span-finder"
	}
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3.2"
	}
}

func (c *AgentConfig) loadEnv() {
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvAgentToken); v != "" {
		c.Token = v
	}
}

func (c *AgentConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Provider == "" {
		return fmt.Errorf("provider required")
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	return nil
}
