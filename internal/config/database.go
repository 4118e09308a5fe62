package config

import (
	"fmt"
	"time"

	"github.com/LeJamon/goSwapd/internal/storage"
)

// DatabaseConfig represents the [database] section
// Selects the key-value store holding offers, indices and the outbox
type DatabaseConfig struct {
	Backend   string `toml:"backend" mapstructure:"backend"`
	Path      string `toml:"path" mapstructure:"path"`
	CacheSize int64  `toml:"cache_size" mapstructure:"cache_size"`
}

// JournalConfig represents the [journal] section
// The event journal is optional; driver "none" disables it
type JournalConfig struct {
	Driver  string        `toml:"driver" mapstructure:"driver"`
	DSN     string        `toml:"dsn" mapstructure:"dsn"`
	Buffer  int           `toml:"buffer" mapstructure:"buffer"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

const JournalDisabled = "none"

// Enabled reports whether a journal should be opened.
func (j *JournalConfig) Enabled() bool {
	return j.Driver != "" && j.Driver != JournalDisabled
}

// Validate performs validation on the database configuration
func (d *DatabaseConfig) Validate() error {
	valid := false
	for _, b := range storage.Backends {
		if d.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid database backend: %s (valid options: %v)", d.Backend, storage.Backends)
	}
	if d.Backend != storage.BackendMemory && d.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if d.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", d.CacheSize)
	}
	return nil
}

// Validate performs validation on the journal configuration
func (j *JournalConfig) Validate() error {
	switch j.Driver {
	case "", JournalDisabled:
		return nil
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid journal driver: %s (valid options: sqlite, postgres, none)", j.Driver)
	}
	if j.DSN == "" {
		return fmt.Errorf("journal dsn is required for driver %s", j.Driver)
	}
	if j.Buffer < 0 {
		return fmt.Errorf("buffer must be non-negative, got %d", j.Buffer)
	}
	return nil
}
