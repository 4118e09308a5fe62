package swap

import (
	"github.com/LeJamon/goSwapd/internal/core/amount"
)

// EngineConfig is the administrative configuration of the engine. It is
// injected at construction and only changes through UpdateConfig.
type EngineConfig struct {
	// Admin is the maintenance account. It may cancel any offer and update
	// this configuration.
	Admin string `json:"admin" codec:"admin"`

	// FeeCollector receives every settlement fee and cancellation proof.
	FeeCollector string `json:"fee_collector" codec:"fee_collector"`

	BaseFee amount.Amount `json:"base_fee" codec:"-"`

	// PrivilegeRegistry is the reference registry queried to decide whether
	// an initiator is privileged.
	PrivilegeRegistry string `json:"privilege_registry" codec:"privilege_registry"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{BaseFee: DefaultBaseFee}
}

func (c EngineConfig) Validate() error {
	if c.Admin == "" {
		return failf(TemMALFORMED, "admin account is required")
	}
	if c.FeeCollector == "" {
		return failf(TemMALFORMED, "fee collector account is required")
	}
	if c.PrivilegeRegistry == "" {
		return failf(TemMALFORMED, "privilege registry is required")
	}
	if c.BaseFee.IsZero() {
		return failf(TemBAD_AMOUNT, "base fee must be positive")
	}
	return nil
}
