// Package registry talks to the services the engine does not own: the asset
// registries that hold items and the native ledger that moves native
// currency.
package registry

import (
	"context"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mock/registry.go -package=mock github.com/LeJamon/goSwapd/internal/registry AssetRegistry,NativeLedger

// Token is one item as reported by a registry.
type Token struct {
	TokenID string `json:"token_id"`
	OwnerID string `json:"owner_id"`
}

// AssetRegistry reads and moves items held by asset registries.
type AssetRegistry interface {
	// TokensForOwner lists at most limit items owner holds in registry.
	TokensForOwner(ctx context.Context, registry, owner string, limit int) ([]Token, error)

	// TransferItem moves item out of the engine's custody to account to.
	TransferItem(ctx context.Context, registry, item, to string) error
}

// NativeLedger moves native currency into and out of the engine's account.
type NativeLedger interface {
	// Collect takes amt from account from into the engine's account. It
	// fails without moving anything when from cannot pay.
	Collect(ctx context.Context, from string, amt amount.Amount) error

	// Transfer pays amt out of the engine's account to account to.
	Transfer(ctx context.Context, to string, amt amount.Amount) error
}

var (
	ErrUnknownRegistry = errors.New("unknown registry")
	ErrNotOwner        = errors.New("item is not held by the engine")
	ErrUnknownItem     = errors.New("unknown item")
	ErrInsufficient    = errors.New("insufficient native balance")
)

// RemoteError is an error reported by the remote service itself, as opposed
// to a transport failure.
type RemoteError struct {
	Method  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Method + ": " + e.Code
	}
	return e.Method + ": " + e.Code + ": " + e.Message
}
