package config

import (
	"path/filepath"
)

// Config represents the complete swapd configuration
type Config struct {
	Engine   EngineConfig   `toml:"engine" mapstructure:"engine"`
	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Journal  JournalConfig  `toml:"journal" mapstructure:"journal"`
	Outbox   OutboxConfig   `toml:"outbox" mapstructure:"outbox"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Registry RegistryConfig `toml:"registry" mapstructure:"registry"`
	Auth     AuthConfig     `toml:"auth" mapstructure:"auth"`

	// LogLevel is one of trace, debug, info, warn, error, fatal
	LogLevel string `toml:"log_level" mapstructure:"log_level"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPaths holds the paths to configuration files
type ConfigPaths struct {
	Main string // Path to main config file (swapd.toml)
}

// DefaultConfigPaths returns the default configuration file paths
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "swapd.toml"}
}

// ConfigPathsFromDir returns configuration paths for a specific directory
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "swapd.toml")}
}

// GetConfigPath returns the path to the main configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
