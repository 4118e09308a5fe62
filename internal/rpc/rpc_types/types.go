package rpc_types

import (
	"context"
	"encoding/json"
	"sort"
)

// Role-based access control
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "guest"
	}
}

// RpcContext contains request-specific information
type RpcContext struct {
	Context context.Context
	Role    Role
	// Account is the authenticated caller; empty for guests.
	Account string
	// Registry is set when Account is a configured asset registry.
	Registry bool
	ClientIP string
}

// MethodHandler is implemented by every RPC method
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// MethodRegistry maps method names to handlers
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

// List returns the registered method names in order
func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// XrplRequest is the JSON-RPC request envelope
// Format: {"method": "method_name", "params": [{...}]}
type XrplRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// Common parameter structures used across multiple methods

// AccountParam names the account a query is about
type AccountParam struct {
	Account string `json:"account"`
}

// OfferParam names an offer
type OfferParam struct {
	OfferID string `json:"offer_id"`
}

// StreamMessage is one message pushed on the event stream
type StreamMessage struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event,omitempty"`
}

// WebSocketCommand is a control message sent by a stream subscriber
type WebSocketCommand struct {
	Command  string      `json:"command"`
	ID       interface{} `json:"id,omitempty"`
	Accounts []string    `json:"accounts,omitempty"`
}

// WebSocketResponse answers a WebSocketCommand
type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  *RpcError   `json:"error,omitempty"`
}
