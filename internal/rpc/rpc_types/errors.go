package rpc_types

import (
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/pkg/errors"
)

// RpcError represents an RPC error with code and message
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Type        string `json:"type"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Transport error codes. Engine failures reuse their result code instead,
// which never collides with these.
const (
	// Universal errors
	RpcUNKNOWN          = -1
	RpcJSON_RPC         = -32600
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	// General purpose errors
	RpcGENERAL           = 1
	RpcMISSING_COMMAND   = 2
	RpcCOMMAND_UNTRUSTED = 3
	RpcNOT_ENABLED       = 31
	RpcOBJECT_NOT_FOUND  = 92
	RpcFORBIDDEN         = 403
)

// Standard error constructors
func NewRpcError(code int, error, errorType, message string) *RpcError {
	return &RpcError{
		Code:        code,
		ErrorString: error,
		Type:        errorType,
		Message:     message,
	}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", "internal", message)
}

func RpcErrorMissingCommand() *RpcError {
	return NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing method field")
}

func RpcErrorUntrusted(method string) *RpcError {
	return NewRpcError(RpcCOMMAND_UNTRUSTED, "commandUntrusted", "commandUntrusted",
		"Method '"+method+"' requires higher privileges")
}

func RpcErrorForbidden() *RpcError {
	return NewRpcError(RpcFORBIDDEN, "forbidden", "forbidden", "Bad credentials.")
}

func RpcErrorNotEnabled(feature string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", "notEnabled", "Feature not enabled: "+feature)
}

// RpcErrorObjectNotFound returns an error for an unknown offer or pending creation
func RpcErrorObjectNotFound(message string) *RpcError {
	return NewRpcError(RpcOBJECT_NOT_FOUND, "objectNotFound", "objectNotFound", message)
}

// RpcErrorMissingField returns an error for missing required field
func RpcErrorMissingField(field string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", "Missing field '"+field+"'.")
}

// RpcErrorInvalidField returns an error for invalid field value
func RpcErrorInvalidField(field string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", "Invalid field '"+field+"'.")
}

// RpcErrorFromEngine converts an engine failure. Errors carrying a result
// code are reported under that code; lookups of unknown records become
// objectNotFound; anything else is internal.
func RpcErrorFromEngine(err error) *RpcError {
	if errors.Is(err, swap.ErrOfferNotFound) || errors.Is(err, swap.ErrPendingNotFound) {
		return RpcErrorObjectNotFound(err.Error())
	}
	var engineErr *swap.Error
	if errors.As(err, &engineErr) {
		r := engineErr.Result
		msg := r.Message()
		if engineErr.Reason != "" {
			msg = engineErr.Reason
		}
		return NewRpcError(int(r), r.String(), "engine", msg)
	}
	var r swap.Result
	if errors.As(err, &r) {
		return NewRpcError(int(r), r.String(), "engine", r.Message())
	}
	return RpcErrorInternal(err.Error())
}
