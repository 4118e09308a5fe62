package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// TransferNotifyMethod handles the transfer_notify RPC method. It is called
// by an asset registry after moving an item to the engine; the caller must
// be a configured registry and its account is the registry id of the item.
type TransferNotifyMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *TransferNotifyMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var notice swap.TransferNotice
	if err := parseParams(params, &notice); err != nil {
		return nil, err
	}
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}
	if err := requireCaller(ctx); err != nil {
		return nil, err
	}
	if !ctx.Registry {
		return nil, rpc_types.RpcErrorUntrusted("transfer_notify")
	}
	notice.Registry = ctx.Account

	outcome, err := m.Services.Engine.NotifyTransfer(ctx.Context, notice)
	response := map[string]interface{}{
		"offer_id": notice.OfferID,
		"outcome":  outcome.String(),
		// A registry keeps the item where it is only when the engine
		// accepted it.
		"rejected": outcome.Rejected(),
		"result":   swap.ResultOf(err).String(),
	}
	if err != nil {
		if swap.ResultOf(err) == swap.TefINTERNAL {
			return nil, rpc_types.RpcErrorFromEngine(err)
		}
		response["reason"] = err.Error()
	}
	return response, nil
}

func (m *TransferNotifyMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleUser
}
