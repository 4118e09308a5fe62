package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// OfferHistoryMethod handles the offer_history RPC method. History outlives
// the offer record, so completed and cancelled offers can still be queried.
type OfferHistoryMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *OfferHistoryMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request rpc_types.OfferParam
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.OfferID == "" {
		return nil, rpc_types.RpcErrorMissingField("offer_id")
	}
	if m.Services == nil || m.Services.History == nil {
		return nil, rpc_types.RpcErrorNotEnabled("journal")
	}

	events, err := m.Services.History.History(ctx.Context, request.OfferID)
	if err != nil {
		return nil, rpc_types.RpcErrorInternal("Failed to read history: " + err.Error())
	}
	if events == nil {
		events = []swap.Event{}
	}
	return map[string]interface{}{
		"offer_id": request.OfferID,
		"events":   events,
	}, nil
}

func (m *OfferHistoryMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}
