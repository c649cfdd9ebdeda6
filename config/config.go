// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the conversation service.
type Config struct {
	// HTTP Server
	HTTPPort  string `env:"CONVOD_HTTP_PORT" envDefault:"8000"`
	LogLevel  string `env:"CONVOD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CONVOD_LOG_FORMAT" envDefault:"json"` // json or console

	// Model endpoint
	ModelBaseURL        string `env:"MODEL_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ModelAPIKey         string `env:"MODEL_API_KEY"`
	ModelName           string `env:"MODEL_NAME" envDefault:"gpt-4o-mini"`
	ModelTimeoutSeconds int    `env:"MODEL_TIMEOUT_SECONDS" envDefault:"120"`

	// Turn loop
	SystemPrompt  string `env:"SYSTEM_PROMPT"`
	MaxToolRounds int    `env:"MAX_TOOL_ROUNDS" envDefault:"10"`

	// Storage. DATABASE_URL switches persistence to Postgres; otherwise
	// transcripts live as JSON files under StorePath.
	StorePath   string `env:"STORE_PATH" envDefault:"./conversations"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional remote tool server. Empty disables the bridge.
	MCPServerURL string `env:"MCP_SERVER_URL"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.ModelBaseURL == "" {
		return nil, fmt.Errorf("MODEL_BASE_URL must not be empty")
	}
	if cfg.MaxToolRounds <= 0 {
		return nil, fmt.Errorf("MAX_TOOL_ROUNDS must be positive, got %d", cfg.MaxToolRounds)
	}
	return cfg, nil
}

// ModelTimeout returns the model request timeout as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}
