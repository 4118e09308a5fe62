// Package rpc serves the engine over HTTP: JSON-RPC on "/", the lifecycle
// event stream on "/ws", prometheus metrics on "/metrics" and a liveness
// check on "/health".
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxBodySize bounds a JSON-RPC request body
const maxBodySize = 1 << 20

// Server handles HTTP JSON-RPC requests
type Server struct {
	registry   *rpc_types.MethodRegistry
	services   *rpc_types.ServiceContainer
	tokens     map[string]string
	registries map[string]bool // accounts allowed to report item transfers
	timeout    time.Duration
	log        *zap.Logger
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithTokens maps bearer tokens to the accounts they authenticate
func WithTokens(tokens map[string]string) ServerOption {
	return func(s *Server) {
		for k, v := range tokens {
			s.tokens[k] = v
		}
	}
}

// WithRegistries lists the accounts that act as asset registries
func WithRegistries(ids ...string) ServerOption {
	return func(s *Server) {
		for _, id := range ids {
			s.registries[id] = true
		}
	}
}

func WithTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new RPC server over svc
func NewServer(svc *rpc_types.ServiceContainer, opts ...ServerOption) *Server {
	server := &Server{
		registry:   rpc_types.NewMethodRegistry(),
		services:   svc,
		tokens:     make(map[string]string),
		registries: make(map[string]bool),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.log = server.log.Named("rpc")

	// Register all RPC methods
	server.registerAllMethods(svc)

	return server
}

// Methods lists the registered method names
func (s *Server) Methods() []string {
	return s.registry.List()
}

// Handler returns the complete HTTP surface. hub and gatherer may be nil,
// in which case "/ws" and "/metrics" are not served.
func (s *Server) Handler(hub *EventHub, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	if hub != nil {
		hub.Authenticate(s.newContext)
		mux.Handle("/ws", hub)
	}
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, rpcErr := s.newContext(r)
	if rpcErr != nil {
		s.writeResponse(w, nil, nil, rpcErr)
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx.Context, cancel = context.WithTimeout(ctx.Context, s.timeout)
		defer cancel()
	}

	// Handle GET request (for simple queries like server_info)
	if r.Method == http.MethodGet {
		s.handleGetRequest(w, r, ctx)
		return
	}
	s.handlePostRequest(w, r, ctx)
}

// newContext authenticates the caller. A request without credentials runs
// as guest; unknown credentials are refused.
func (s *Server) newContext(r *http.Request) (*rpc_types.RpcContext, *rpc_types.RpcError) {
	ctx := &rpc_types.RpcContext{
		Context:  r.Context(),
		Role:     rpc_types.RoleGuest,
		ClientIP: getClientIP(r),
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ctx, nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	account, ok := s.tokens[token]
	if !ok || token == auth {
		return nil, rpc_types.RpcErrorForbidden()
	}

	ctx.Account = account
	ctx.Registry = s.registries[account]
	ctx.Role = rpc_types.RoleUser
	if s.services != nil && s.services.Engine != nil && s.services.Engine.Config().Admin == account {
		ctx.Role = rpc_types.RoleAdmin
	}
	return ctx, nil
}

// handleGetRequest processes GET requests with query parameters
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request, ctx *rpc_types.RpcContext) {
	method := r.URL.Query().Get("command")
	if method == "" {
		// Default to server_info for GET requests without command
		method = "server_info"
	}

	result, rpcErr := s.executeMethod(method, nil, ctx)
	s.writeResponse(w, map[string]interface{}{"command": method}, result, rpcErr)
}

// handlePostRequest processes POST requests with a JSON-RPC payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request, ctx *rpc_types.RpcContext) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeResponse(w, nil, nil, rpc_types.RpcErrorInternal("Failed to read request body"))
		return
	}

	var request rpc_types.XrplRequest
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeResponse(w, nil, nil, rpc_types.NewRpcError(rpc_types.RpcPARSE_ERROR, "jsonInvalid", "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeResponse(w, nil, nil, rpc_types.RpcErrorMissingCommand())
		return
	}

	// Params are an array with one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	result, rpcErr := s.executeMethod(request.Method, params, ctx)

	// Echo the request in error responses
	var requestObj interface{}
	if rpcErr != nil {
		reqMap := map[string]interface{}{}
		if params != nil {
			json.Unmarshal(params, &reqMap)
		}
		reqMap["command"] = request.Method
		requestObj = reqMap
	}
	s.writeResponse(w, requestObj, result, rpcErr)
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *rpc_types.RpcContext) (interface{}, *rpc_types.RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, rpc_types.RpcErrorMethodNotFound(method)
	}

	if ctx.Role < handler.RequiredRole() {
		return nil, rpc_types.RpcErrorUntrusted(method)
	}

	start := time.Now()
	result, rpcErr := handler.Handle(ctx, params)

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("account", ctx.Account),
		zap.Duration("elapsed", time.Since(start)),
	}
	if rpcErr != nil {
		s.log.Debug("RPC call failed", append(fields, zap.String("error", rpcErr.ErrorString), zap.String("message", rpcErr.Message))...)
	} else {
		s.log.Debug("RPC call", fields...)
	}
	return result, rpcErr
}

// writeResponse writes a JSON-RPC response
// - result.status = "success" or "error"
// - errors carry error, error_code and error_message inside result
func (s *Server) writeResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *rpc_types.RpcError) {
	response := make(map[string]interface{})

	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
		response["result"] = resultObj
	} else if resultMap, ok := result.(map[string]interface{}); ok {
		resultMap["status"] = "success"
		response["result"] = resultMap
	} else {
		response["result"] = map[string]interface{}{
			"status": "success",
			"data":   result,
		}
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to marshal response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
