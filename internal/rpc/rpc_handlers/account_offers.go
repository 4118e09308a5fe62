package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// AccountOffersMethod handles the account_offers RPC method. With "expand"
// set the full records are returned instead of their ids.
type AccountOffersMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *AccountOffersMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request struct {
		rpc_types.AccountParam
		Expand bool `json:"expand,omitempty"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.Account == "" {
		request.Account = ctx.Account
	}
	if request.Account == "" {
		return nil, rpc_types.RpcErrorMissingField("account")
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}

	ids, err := m.Services.Engine.OffersFor(ctx.Context, request.Account)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	response := map[string]interface{}{
		"account": request.Account,
		"offers":  nonNil(ids),
	}
	if request.Expand {
		offers := make([]*swap.Offer, 0, len(ids))
		for _, id := range ids {
			o, err := m.Services.Engine.Offer(ctx.Context, id)
			if err != nil {
				return nil, rpc_types.RpcErrorFromEngine(err)
			}
			offers = append(offers, o)
		}
		response["offers"] = offers
	}
	return response, nil
}

func (m *AccountOffersMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

// AccountEscrowMethod handles the account_escrow RPC method
type AccountEscrowMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *AccountEscrowMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request rpc_types.AccountParam
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.Account == "" {
		request.Account = ctx.Account
	}
	if request.Account == "" {
		return nil, rpc_types.RpcErrorMissingField("account")
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}

	assets, err := m.Services.Engine.EscrowedFor(ctx.Context, request.Account)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	if assets == nil {
		assets = []swap.AssetRef{}
	}
	return map[string]interface{}{
		"account": request.Account,
		"assets":  assets,
	}, nil
}

func (m *AccountEscrowMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
