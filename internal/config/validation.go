package config

import (
	"fmt"

	"github.com/LeJamon/goSwapd/internal/logging"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine validation failed: %w", err)
	}

	if err := config.Database.Validate(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := config.Journal.Validate(); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}

	if err := config.Outbox.Validate(); err != nil {
		return fmt.Errorf("outbox validation failed: %w", err)
	}

	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.Auth.Validate(); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}

	if err := config.Registry.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	return nil
}
