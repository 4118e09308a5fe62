package rpc_handlers

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// ServerInfoMethod handles the server_info RPC method
type ServerInfoMethod struct {
	Services *rpc_types.ServiceContainer
}

func (m *ServerInfoMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if m.Services == nil {
		return nil, rpc_types.RpcErrorInternal("Services not available")
	}

	info := map[string]interface{}{
		"build_version": m.Services.Version,
		"standalone":    m.Services.Standalone,
		"time":          time.Now().UTC().Format(time.RFC3339),
		"role":          ctx.Role.String(),
	}
	if !m.Services.StartTime.IsZero() {
		info["uptime"] = int64(time.Since(m.Services.StartTime).Seconds())
	}
	if ctx.Account != "" {
		info["account"] = ctx.Account
	}

	if m.Services.Transfers != nil {
		tasks, err := m.Services.Transfers.Tasks(ctx.Context)
		if err != nil {
			return nil, rpc_types.RpcErrorInternal("Failed to read outbox: " + err.Error())
		}
		failing := 0
		for _, t := range tasks {
			if t.Attempts > 0 {
				failing++
			}
		}
		info["outbox"] = map[string]interface{}{
			"queued":   len(tasks),
			"retrying": failing,
		}
	}

	if m.Services.History != nil {
		info["journal"] = map[string]interface{}{
			"enabled": true,
			"dropped": m.Services.History.Dropped(),
		}
	} else {
		info["journal"] = map[string]interface{}{"enabled": false}
	}

	return map[string]interface{}{
		"info": info,
	}, nil
}

func (m *ServerInfoMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

// PingMethod handles the ping RPC method
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	return map[string]interface{}{}, nil
}

func (m *PingMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}
