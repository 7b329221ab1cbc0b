// Package config loads server configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server binary needs.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"ecopolis.db"`

	// Chat-completions provider. An empty API key disables the speech
	// pipeline; all other game operations keep working.
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// GenerateMaps switches new games from the fixed starting map to
	// procedural generation.
	GenerateMaps bool `env:"GENERATE_MAPS" envDefault:"false"`

	// CORSOrigins is a comma-separated allowlist; localhost dev servers are
	// always allowed.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
