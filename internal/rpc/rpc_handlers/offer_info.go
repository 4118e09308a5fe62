package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// OfferInfoMethod handles the offer_info RPC method
type OfferInfoMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *OfferInfoMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request rpc_types.OfferParam
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.OfferID == "" {
		return nil, rpc_types.RpcErrorMissingField("offer_id")
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}

	offer, err := m.Services.Engine.Offer(ctx.Context, request.OfferID)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	return map[string]interface{}{
		"offer":  offer,
		"funded": offer.Funded(),
	}, nil
}

func (m *OfferInfoMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

// PendingInfoMethod handles the pending_info RPC method
type PendingInfoMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *PendingInfoMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request struct {
		PendingID string `json:"pending_id"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.PendingID == "" {
		return nil, rpc_types.RpcErrorMissingField("pending_id")
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}

	status, err := m.Services.Engine.PendingInfo(request.PendingID)
	if err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	return map[string]interface{}{
		"pending": status,
	}, nil
}

func (m *PendingInfoMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}
