// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultDBPath is used when DB_PATH is unset.
const DefaultDBPath = "tracker.db"

// Server configures cmd/server.
type Server struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DBPath          string        `env:"DB_PATH" envDefault:"tracker.db"`
	UserID          string        `env:"TRACKER_USER" envDefault:"default"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDev          bool          `env:"LOG_DEV" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr is the listen address for Port.
func (s Server) Addr() string {
	return ":" + s.Port
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer reads the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}
