package swap

import (
	"context"

	"github.com/LeJamon/goSwapd/internal/registry"
)

// PrivilegeOracle answers whether an account holds any item of a reference
// registry. A holder's offers are privileged and never pay the percentage
// fee.
type PrivilegeOracle interface {
	HoldsAny(ctx context.Context, registry, account string) (bool, error)
}

// RegistryOracle asks an asset registry for a single token owned by the
// account.
type RegistryOracle struct {
	Registry registry.AssetRegistry
}

func NewRegistryOracle(r registry.AssetRegistry) *RegistryOracle {
	return &RegistryOracle{Registry: r}
}

func (o *RegistryOracle) HoldsAny(ctx context.Context, reg, account string) (bool, error) {
	tokens, err := o.Registry.TokensForOwner(ctx, reg, account, 1)
	if err != nil {
		return false, err
	}
	return len(tokens) > 0, nil
}

// OracleFunc adapts a function to PrivilegeOracle.
type OracleFunc func(ctx context.Context, registry, account string) (bool, error)

func (f OracleFunc) HoldsAny(ctx context.Context, registry, account string) (bool, error) {
	return f(ctx, registry, account)
}
