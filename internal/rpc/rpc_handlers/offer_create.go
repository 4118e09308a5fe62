package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// OfferCreateMethod handles the offer_create RPC method. The caller is the
// signer. With "wait" set the reply is held until the privilege check
// resolves; otherwise the pending creation is returned at once.
type OfferCreateMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *OfferCreateMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request struct {
		swap.CreateRequest
		Wait bool `json:"wait,omitempty"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}
	if err := requireCaller(ctx); err != nil {
		return nil, err
	}

	pending, err := m.Services.Engine.CreateOffer(ctx.Context, ctx.Account, request.CreateRequest)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}

	if request.Wait {
		offer, err := pending.Wait(ctx.Context)
		if err != nil {
			return nil, rpc_types.RpcErrorFromEngine(err)
		}
		return map[string]interface{}{
			"pending_id": pending.ID,
			"offer":      offer,
			"result":     swap.TesSUCCESS.String(),
		}, nil
	}

	status, err := m.Services.Engine.PendingInfo(pending.ID)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	return map[string]interface{}{
		"pending_id": pending.ID,
		"pending":    status,
	}, nil
}

func (m *OfferCreateMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleUser
}
