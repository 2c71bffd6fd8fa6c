// Package config loads process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the process reads from its environment.
type Config struct {
	// DBPath is the SQLite save file location.
	DBPath string `env:"GOCHI_DB_PATH" envDefault:"data/gochi.db"`
	// Port is the HTTP API listen port.
	Port int `env:"GOCHI_API_PORT" envDefault:"8080"`
	// AdminKey is the bearer token required on mutating endpoints.
	// Empty disables the check (local single-player use).
	AdminKey string `env:"GOCHI_ADMIN_KEY"`
	// NarrativeURL is the optional remote narrative-card service endpoint.
	NarrativeURL string `env:"GOCHI_NARRATIVE_URL"`
	// UseNarrative toggles the remote service for new games.
	UseNarrative bool `env:"GOCHI_USE_NARRATIVE" envDefault:"false"`
	// Seed fixes the random source for reproducible runs. 0 means
	// nondeterministic (crypto-backed).
	Seed int64 `env:"GOCHI_SEED" envDefault:"0"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
