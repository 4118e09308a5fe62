package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// parseParams decodes params into v. Missing params leave v untouched.
func parseParams(params json.RawMessage, v interface{}) *rpc_types.RpcError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return rpc_types.RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

func requireEngine(s *rpc_types.ServiceContainer) *rpc_types.RpcError {
	if s == nil || s.Engine == nil {
		return rpc_types.RpcErrorInternal("Engine not available")
	}
	return nil
}

// requireCaller rejects unauthenticated callers of methods that act on
// behalf of the signer.
func requireCaller(ctx *rpc_types.RpcContext) *rpc_types.RpcError {
	if ctx.Account == "" {
		return rpc_types.RpcErrorUntrusted("this method")
	}
	return nil
}
