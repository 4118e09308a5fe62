package config

import (
	"fmt"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/swap"
)

// EngineConfig represents the [engine] section
type EngineConfig struct {
	Admin             string `toml:"admin" mapstructure:"admin"`
	FeeCollector      string `toml:"fee_collector" mapstructure:"fee_collector"`
	PrivilegeRegistry string `toml:"privilege_registry" mapstructure:"privilege_registry"`

	// BaseFee is in smallest native units, as a decimal string since it
	// does not fit in 64 bits.
	BaseFee string `toml:"base_fee" mapstructure:"base_fee"`

	PendingTimeout time.Duration `toml:"pending_timeout" mapstructure:"pending_timeout"`
	CacheSize      int           `toml:"cache_size" mapstructure:"cache_size"`
}

// Swap converts the section into the engine's configuration.
func (e *EngineConfig) Swap() (swap.EngineConfig, error) {
	fee, err := amount.Parse(e.BaseFee)
	if err != nil {
		return swap.EngineConfig{}, fmt.Errorf("invalid base_fee %q: %w", e.BaseFee, err)
	}
	return swap.EngineConfig{
		Admin:             e.Admin,
		FeeCollector:      e.FeeCollector,
		BaseFee:           fee,
		PrivilegeRegistry: e.PrivilegeRegistry,
	}, nil
}

// Validate performs validation on the engine configuration
func (e *EngineConfig) Validate() error {
	cfg, err := e.Swap()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if e.PendingTimeout <= 0 {
		return fmt.Errorf("pending_timeout must be positive, got %s", e.PendingTimeout)
	}
	if e.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", e.CacheSize)
	}
	return nil
}
