package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// EngineConfigMethod handles the engine_config RPC method
type EngineConfigMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *EngineConfigMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"config": m.Services.Engine.Config(),
	}, nil
}

func (m *EngineConfigMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

// EngineConfigSetMethod handles the engine_config_set RPC method. Fields
// left out of the request keep their current value.
type EngineConfigSetMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *EngineConfigSetMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if err := requireEngine(m.Services); err != nil {
		return nil, err
	}
	cfg := m.Services.Engine.Config()
	if err := parseParams(params, &cfg); err != nil {
		return nil, err
	}

	if err := m.Services.Engine.UpdateConfig(ctx.Context, ctx.Account, cfg); err != nil {
		return nil, rpc_types.RpcErrorFromEngine(err)
	}
	return map[string]interface{}{
		"config": m.Services.Engine.Config(),
		"result": swap.TesSUCCESS.String(),
	}, nil
}

func (m *EngineConfigSetMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleAdmin
}
