package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// OfferCancelMethod handles the offer_cancel RPC method
type OfferCancelMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *OfferCancelMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request struct {
		rpc_types.OfferParam
		Attached amount.Amount `json:"attached"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.OfferID == "" {
		return nil, rpc_types.RpcErrorMissingField("offer_id")
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}
	if err := requireCaller(ctx); err != nil {
		return nil, err
	}

	if err := m.Services.Engine.CancelOffer(ctx.Context, ctx.Account, request.OfferID, request.Attached); err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	return map[string]interface{}{
		"offer_id": request.OfferID,
		"result":   swap.TesSUCCESS.String(),
	}, nil
}

func (m *OfferCancelMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleUser
}
